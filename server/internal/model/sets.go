package model

import (
	"slices"
)

// SetOf 由若干枚举值构造集合，重复项自然去重。
func SetOf[T ~string](vals ...T) map[T]bool {
	set := make(map[T]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}

// SortedKeys 把集合导出为按名称排序的切片。
// 配对结果的序列化必须经过这里，保证相同输入得到逐字节相同的输出，
// 不依赖 map 的遍历顺序。
func SortedKeys[T ~string](set map[T]bool) []T {
	out := make([]T, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
