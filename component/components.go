package component

import (
	"sync"
	"sync/atomic"

	"github.com/ceyewan/keystone/xerrors"
)

// Components 并发安全的内存 Registry
type Components struct {
	mu     sync.RWMutex
	byName map[string]Component
}

// NewComponents 创建空的组件表
func NewComponents() *Components {
	return &Components{byName: make(map[string]Component)}
}

// Register 注册组件，同名重复注册返回 ErrComponentRegistered
func (c *Components) Register(name string, comp Component) error {
	if name == "" || comp == nil {
		return ErrInvalidArgument
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byName[name]; exists {
		return xerrors.Wrapf(ErrComponentRegistered, "%q", name)
	}
	c.byName[name] = comp
	return nil
}

// Deregister 移除组件，不存在时什么也不做
func (c *Components) Deregister(name string) {
	c.mu.Lock()
	delete(c.byName, name)
	c.mu.Unlock()
}

func (c *Components) Lookup(id Identity) (Component, error) {
	if id == nil {
		return nil, ErrInvalidArgument
	}
	return c.LookupName(id.Name())
}

func (c *Components) LookupName(name string) (Component, error) {
	c.mu.RLock()
	comp, ok := c.byName[name]
	c.mu.RUnlock()
	if !ok {
		return nil, xerrors.Wrapf(ErrComponentNotFound, "%q", name)
	}
	return comp, nil
}

// StaticComponent 状态可由外部设置的 Component，供装配和测试使用
type StaticComponent struct {
	name  string
	local bool
	state atomic.Int32
}

func NewStaticComponent(name string, local bool, state State) *StaticComponent {
	c := &StaticComponent{name: name, local: local}
	c.state.Store(int32(state))
	return c
}

func (c *StaticComponent) Name() string { return c.name }

func (c *StaticComponent) IsLocal() bool { return c.local }

func (c *StaticComponent) State() State { return State(c.state.Load()) }

func (c *StaticComponent) SetState(s State) { c.state.Store(int32(s)) }
