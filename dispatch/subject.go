package dispatch

import (
	"strings"

	"github.com/ceyewan/keystone/component"
)

// Subject 服务的请求主题：<prefix>.<partition>.<type>.<instance>。
//
// 只取各节点看法一致的配置字段：服务名随本机位置判断变化
// （本机为 <type>@localhost，其它节点为 <type>@<host>），不能用来汇合。
// instance 依次取配置 ID、主机名、名称。
// 各段中的 "."、"*"、">"、空白等会被替换为 "_"，保证各自只占一个 token。
func Subject(prefix string, svc *component.Service) string {
	cfg := svc.Configuration()
	return prefix + "." + sanitize(cfg.Partition) + "." + sanitize(svc.Identity().Name()) + "." + sanitize(instance(&cfg))
}

func instance(cfg *component.Configuration) string {
	switch {
	case cfg.ID != "":
		return cfg.ID
	case cfg.HostName != "":
		return cfg.HostName
	}
	return cfg.Name
}

func sanitize(token string) string {
	if token == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, token)
}
