package util

import "math"

// AddInt64 溢出时返回边界值和false
func AddInt64(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64, false
	} else if b < 0 && a < math.MinInt64-b {
		return math.MinInt64, false
	}
	return a + b, true
}
