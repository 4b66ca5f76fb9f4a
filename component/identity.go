package component

import (
	"net"
	"net/url"
	"strconv"
)

const (
	// ProxyComponentName 前端代理组件类型，核心组件在本机时总是按主机寻址
	ProxyComponentName = "cluster"

	// CoreComponentName 核心组件类型
	CoreComponentName = "eucalyptus"

	// LocalHostToken 本地服务名称中的主机部分
	LocalHostToken = "localhost"

	// DefaultPort 组件默认监听端口
	DefaultPort = 8773
)

// Identity 服务类型的静态描述，由全局身份表持有，本包不修改。
type Identity interface {
	// Name 组件类型名，如 "cluster"、"storage"
	Name() string

	// LocalEndpointURI 本机派发使用的 URI
	LocalEndpointURI() *url.URL

	// RemoteEndpointURI 按主机和端口寻址的 URI
	RemoteEndpointURI(host string, port int) *url.URL

	// FullName 由配置推导实例全名
	FullName(cfg *Configuration) FullName
}

// ComponentID Identity 的默认实现。
//
// URI 形如 <scheme>://<host>:<port><path>，本地 URI 的主机固定为 127.0.0.1。
type ComponentID struct {
	ComponentName string `mapstructure:"name"`
	Scheme        string `mapstructure:"scheme"`
	ServicePath   string `mapstructure:"path"`
	LocalPort     int    `mapstructure:"local_port"`
	Vendor        string `mapstructure:"vendor"`
}

// NewComponentID 以默认 scheme/端口创建身份，路径为 /services/<name>
func NewComponentID(name string) *ComponentID {
	id := &ComponentID{ComponentName: name}
	id.setDefaults()
	return id
}

func (c *ComponentID) setDefaults() {
	if c.Scheme == "" {
		c.Scheme = "http"
	}
	if c.ServicePath == "" {
		c.ServicePath = "/services/" + c.ComponentName
	}
	if c.LocalPort == 0 {
		c.LocalPort = DefaultPort
	}
	if c.Vendor == "" {
		c.Vendor = "euca"
	}
}

func (c *ComponentID) Name() string {
	return c.ComponentName
}

func (c *ComponentID) LocalEndpointURI() *url.URL {
	return c.uri("127.0.0.1", c.LocalPort)
}

func (c *ComponentID) RemoteEndpointURI(host string, port int) *url.URL {
	if port <= 0 {
		port = c.LocalPort
	}
	return c.uri(host, port)
}

func (c *ComponentID) FullName(cfg *Configuration) FullName {
	return FullName{
		Vendor:    c.Vendor,
		Partition: cfg.Partition,
		Type:      c.ComponentName,
		Name:      cfg.Name,
	}
}

func (c *ComponentID) String() string {
	return c.ComponentName
}

func (c *ComponentID) uri(host string, port int) *url.URL {
	return &url.URL{
		Scheme: c.Scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   c.ServicePath,
	}
}
