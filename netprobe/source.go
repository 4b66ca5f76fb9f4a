package netprobe

import (
	"context"
	"net"
	"os"
)

// AddrSource 本机网卡地址来源，测试中可替换
type AddrSource interface {
	InterfaceAddrs() ([]net.Addr, error)
}

// Resolver 主机名解析，*net.Resolver 即满足
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// SystemAddrs 读取操作系统的网卡地址
type SystemAddrs struct{}

func (SystemAddrs) InterfaceAddrs() ([]net.Addr, error) {
	return net.InterfaceAddrs()
}

// StaticAddrs 固定的地址列表
type StaticAddrs []net.IP

func (s StaticAddrs) InterfaceAddrs() ([]net.Addr, error) {
	out := make([]net.Addr, 0, len(s))
	for _, ip := range s {
		out = append(out, &net.IPAddr{IP: ip})
	}
	return out, nil
}

func systemHostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}

// addrIP 取出 net.Addr 中的 IP
func addrIP(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	return nil
}
