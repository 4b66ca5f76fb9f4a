package xerrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v，期望 nil", err)
	}

	base := errors.New("base error")
	wrapped := Wrap(base, "context")
	if wrapped.Error() != "context: base error" {
		t.Errorf("Wrap(err).Error() = %q，期望 %q", wrapped.Error(), "context: base error")
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWrapf(t *testing.T) {
	if err := Wrapf(nil, "service %s", "cluster"); err != nil {
		t.Errorf("Wrapf(nil) = %v，期望 nil", err)
	}

	wrapped := Wrapf(ErrNotFound, "component %q", "cluster")
	if wrapped.Error() != `component "cluster": not found` {
		t.Errorf("Wrapf(err).Error() = %q", wrapped.Error())
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("Wrapf 应保留哨兵错误")
	}
}

func TestWithCode(t *testing.T) {
	if err := WithCode(nil, "CODE"); err != nil {
		t.Errorf("WithCode(nil) = %v，期望 nil", err)
	}

	coded := WithCode(errors.New("probe failed"), "PROBE_FAILED")
	if coded.Error() != "[PROBE_FAILED] probe failed" {
		t.Errorf("WithCode(err).Error() = %q", coded.Error())
	}

	// 包装后依然能取到 code
	if code := GetCode(Wrap(coded, "resolve")); code != "PROBE_FAILED" {
		t.Errorf("GetCode(wrapped) = %q，期望 %q", code, "PROBE_FAILED")
	}
	if code := GetCode(errors.New("plain")); code != "" {
		t.Errorf("GetCode(plain) = %q，期望空串", code)
	}
}

func TestMust(t *testing.T) {
	if v := Must(42, nil); v != 42 {
		t.Errorf("Must(42, nil) = %d，期望 42", v)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Must(_, err) 未触发 panic")
		}
	}()
	Must(0, errors.New("error"))
}

func TestCombine(t *testing.T) {
	if err := Combine(nil, nil); err != nil {
		t.Errorf("Combine(nil, nil) = %v，期望 nil", err)
	}

	err1 := errors.New("error 1")
	if err := Combine(nil, err1); err != err1 {
		t.Errorf("Combine(nil, err1) = %v，期望 %v", err, err1)
	}

	err2 := errors.New("error 2")
	combined := Combine(err1, err2)
	multi, ok := combined.(*MultiError)
	if !ok {
		t.Fatalf("Combine(err1, err2) 类型 = %T，期望 *MultiError", combined)
	}
	if multi.Error() != "error 1 (and 1 more errors)" {
		t.Errorf("multi.Error() = %q", multi.Error())
	}
	if !errors.Is(combined, err2) {
		t.Error("errors.Is(combined, err2) = false，期望 true")
	}
}

func TestCollector(t *testing.T) {
	var c Collector
	c.Collect(nil)
	if c.Err() != nil {
		t.Errorf("Collect(nil) 后 Err() = %v，期望 nil", c.Err())
	}

	err1 := errors.New("error 1")
	c.Collect(err1)
	c.Collect(errors.New("error 2"))
	if c.Err() != err1 {
		t.Errorf("Err() = %v，期望第一个错误", c.Err())
	}
}
