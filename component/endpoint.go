package component

import (
	"fmt"
	"net/url"
)

// Endpoint 构造时确定的本地/远程标记和规范 URI，之后不再改变。
type Endpoint struct {
	local bool
	uri   url.URL
}

func newEndpoint(local bool, uri *url.URL) Endpoint {
	e := Endpoint{local: local}
	if uri != nil {
		e.uri = *uri
	}
	return e
}

func (e Endpoint) IsLocal() bool {
	return e.local
}

// URI 返回副本，调用方修改不会影响 Endpoint
func (e Endpoint) URI() *url.URL {
	u := e.uri
	return &u
}

func (e Endpoint) String() string {
	return fmt.Sprintf("Endpoint local=%t uri=%s", e.local, e.uri.String())
}
