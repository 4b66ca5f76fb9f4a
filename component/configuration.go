package component

import "fmt"

// Configuration 单个服务实例的配置快照，本包只读不写。
type Configuration struct {
	ID            string `json:"id" yaml:"id" mapstructure:"id"`
	Name          string `json:"name" yaml:"name" mapstructure:"name"`
	ComponentName string `json:"component" yaml:"component" mapstructure:"component"`
	Partition     string `json:"partition" yaml:"partition" mapstructure:"partition"`
	HostName      string `json:"host" yaml:"host" mapstructure:"host"` // 为空表示未配置
	Port          int    `json:"port" yaml:"port" mapstructure:"port"`
	Local         bool   `json:"local" yaml:"local" mapstructure:"local"`
}

// IsLocal 配置是否显式声明服务运行在本机
func (c *Configuration) IsLocal() bool {
	return c.Local
}

// HasHost 是否配置了主机名
func (c *Configuration) HasHost() bool {
	return c.HostName != ""
}

// URI 配置声明的对外地址，与本机的位置判断无关，各节点算出的结果一致。
// 未配置主机时只能退回组件的本地 URI。
func (c *Configuration) URI(id Identity) string {
	if !c.HasHost() {
		return id.LocalEndpointURI().String()
	}
	return id.RemoteEndpointURI(c.HostName, c.Port).String()
}

func (c *Configuration) String() string {
	return fmt.Sprintf("Configuration id=%s name=%s component=%s partition=%s host=%s port=%d local=%t",
		c.ID, c.Name, c.ComponentName, c.Partition, c.HostName, c.Port, c.Local)
}
