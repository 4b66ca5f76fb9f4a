package component

import (
	"fmt"
	"strings"
)

// State 组件生命周期状态。
//
// 序号越大越"可用"：StateEnabled 最大，StateBroken 最小。
// Compare 依赖这个顺序把更健康的服务排在前面。
type State int32

const (
	StateBroken State = iota
	StatePrimordial
	StateInitialized
	StateLoaded
	StateStopped
	StateNotReady
	StateDisabled
	StateEnabled
)

var stateNames = [...]string{
	StateBroken:      "BROKEN",
	StatePrimordial:  "PRIMORDIAL",
	StateInitialized: "INITIALIZED",
	StateLoaded:      "LOADED",
	StateStopped:     "STOPPED",
	StateNotReady:    "NOTREADY",
	StateDisabled:    "DISABLED",
	StateEnabled:     "ENABLED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Ordinal 返回状态在枚举中的位置
func (s State) Ordinal() int {
	return int(s)
}

// Valid 报告 s 是否为已定义的状态
func (s State) Valid() bool {
	return s >= StateBroken && s <= StateEnabled
}

// ParseState 解析状态名（不区分大小写）
func ParseState(name string) (State, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range stateNames {
		if n == upper {
			return State(i), nil
		}
	}
	return StateBroken, fmt.Errorf("%w: unknown state %q", ErrInvalidArgument, name)
}
