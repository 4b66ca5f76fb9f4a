package component

// ServiceID 服务实例的对外标识，用于注册发布和跨节点传递。
type ServiceID struct {
	UUID      string `json:"uuid" msgpack:"uuid"`
	Partition string `json:"partition" msgpack:"partition"`
	Name      string `json:"name" msgpack:"name"`
	Type      string `json:"type" msgpack:"type"`
	URI       string `json:"uri" msgpack:"uri"`
}

// NewServiceID 由配置、组件类型和规范 URI 构建 ServiceID
func NewServiceID(cfg *Configuration, typ, uri string) ServiceID {
	return ServiceID{
		UUID:      cfg.ID,
		Partition: cfg.Partition,
		Name:      cfg.Name,
		Type:      typ,
		URI:       uri,
	}
}
