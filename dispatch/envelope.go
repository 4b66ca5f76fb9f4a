package dispatch

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/keystone/component"
	"github.com/ceyewan/keystone/xerrors"
)

// envelope 线上的请求/响应格式，Error 非空表示对端处理失败
type envelope struct {
	Message *component.Message `msgpack:"m,omitempty"`
	Error   string             `msgpack:"e,omitempty"`
}

func encode(env *envelope) ([]byte, error) {
	data, err := msgpack.Marshal(env)
	if err != nil {
		return nil, xerrors.Wrap(err, "encode envelope")
	}
	return data, nil
}

func decode(data []byte) (*envelope, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, xerrors.Wrap(err, "decode envelope")
	}
	return &env, nil
}

// withHeaders 复制消息并合并额外头部，不修改调用方的消息
func withHeaders(msg *component.Message, extra map[string]string) *component.Message {
	out := *msg
	out.Headers = make(map[string]string, len(msg.Headers)+len(extra))
	for k, v := range msg.Headers {
		out.Headers[k] = v
	}
	for k, v := range extra {
		out.Headers[k] = v
	}
	return &out
}
