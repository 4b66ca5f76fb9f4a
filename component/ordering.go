package component

import (
	"cmp"
	"slices"
)

// Compare 服务之间的全序，用于在竞争同一角色的服务中确定性地挑选：
//
//  1. 配置中的分区名升序（不取全名，Identity 可能改写全名中的分区）
//  2. 同分区内状态降序（更可用的在前）
//  3. 同分区同状态按名称升序
//
// 返回负数表示 a 排在 b 之前。
func Compare(a, b *Service) int {
	if c := cmp.Compare(a.cfg.Partition, b.cfg.Partition); c != 0 {
		return c
	}
	if c := cmp.Compare(rank(b), rank(a)); c != 0 {
		return c
	}
	return cmp.Compare(a.Name(), b.Name())
}

// rank 状态查询失败的服务视为 StateBroken，排到本分区末尾
func rank(s *Service) int {
	st, err := s.State()
	if err != nil {
		return StateBroken.Ordinal()
	}
	return st.Ordinal()
}

// Sort 按 Compare 稳定排序
func Sort(services []*Service) {
	slices.SortStableFunc(services, Compare)
}

// Primaries 排序后每个配置分区的第一个服务
func Primaries(services []*Service) map[string]*Service {
	sorted := slices.Clone(services)
	Sort(sorted)

	out := make(map[string]*Service)
	for _, s := range sorted {
		if _, ok := out[s.cfg.Partition]; !ok {
			out[s.cfg.Partition] = s
		}
	}
	return out
}
