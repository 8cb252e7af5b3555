// Package suggest ranks people a user may know.
package suggest

// Jaccard |A∩B| / |A∪B|，任一侧为空返回 0；重复标签按集合处理
func Jaccard(a, b []string) float64 {
	inter, union := overlap(a, b)
	if union == 0 || len(a) == 0 || len(b) == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SharedCount 去重后的交集大小
func SharedCount(a, b []string) int {
	inter, _ := overlap(a, b)
	return inter
}

func overlap(a, b []string) (inter, union int) {
	sa := toSet(a)
	sb := toSet(b)
	for k := range sa {
		if _, ok := sb[k]; ok {
			inter++
		}
	}
	union = len(sa) + len(sb) - inter
	return inter, union
}

func toSet(xs []string) map[string]struct{} {
	s := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		s[x] = struct{}{}
	}
	return s
}
