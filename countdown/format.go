package countdown

import (
	"fmt"
	"time"
)

// ExpiredLabel is shown once the deadline has passed.
const ExpiredLabel = "已截止"

// Format renders a positive remaining duration. Each unit is truncated;
// the coarsest non-zero unit decides the precision.
func Format(remaining time.Duration) string {
	ms := remaining.Milliseconds()
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	switch {
	case hours > 0:
		return fmt.Sprintf("剩 %dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("剩 %dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("剩 %ds", seconds)
	}
}
