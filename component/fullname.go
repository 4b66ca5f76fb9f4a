package component

import "fmt"

// FullName 服务实例的全局唯一名称
type FullName struct {
	Vendor    string
	Partition string
	Type      string
	Name      string
}

// String 形如 arn:euca:p1:storage:sc-01
func (f FullName) String() string {
	return fmt.Sprintf("arn:%s:%s:%s:%s", f.Vendor, f.Partition, f.Type, f.Name)
}
