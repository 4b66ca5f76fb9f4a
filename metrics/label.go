package metrics

// Label 指标维度
//
// 避免高基数标签（如实例 UUID），keystone 只使用组件类型、分区、结果等稳定值。
type Label struct {
	Key   string
	Value string
}

// L 创建 Label
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// 常用标签键
const (
	LabelComponent = "component"
	LabelPartition = "partition"
	LabelResult    = "result"
	LabelMode      = "mode"
)

// 常用结果值
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
