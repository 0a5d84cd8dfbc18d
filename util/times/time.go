package times

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/fixkme/grouprefresh/errs"
)

const (
	SecMs  = 1000
	MinMs  = 60 * SecMs
	HourMs = 60 * MinMs
)

var (
	timeOffset atomic.Int64 // 时间偏移 ns, 用来校正本机与服务器的时钟差
)

// deadline字符串不带时区, 统一按UTC解析
var deadlineLayouts = []string{
	"2006-01-02T15:04:05Z07:00", // 秒后面的小数部分time.Parse会自动接受
	"2006-01-02T15:04Z07:00",
}

// SetTimeOffset 设置时间偏移量
func SetTimeOffset(newOffset time.Duration) {
	timeOffset.Store(int64(newOffset))
}

// GetTimeOffset 获取时间偏移量
func GetTimeOffset() time.Duration {
	return time.Duration(timeOffset.Load())
}

// Now 获取当前时间(UTC)
func Now() time.Time {
	now := time.Now()
	if off := GetTimeOffset(); off != 0 {
		now = now.Add(off)
	}
	return now.UTC()
}

// NowMs 获取当前时间的毫秒时间戳
func NowMs() int64 {
	return Now().UnixMilli()
}

// Ms2Time ms时间戳转化为UTC时间
func Ms2Time(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ParseDeadline 解析服务端渲染的截止时间, 追加Z后按UTC处理.
// 空字符串返回nil, 表示没有截止时间.
func ParseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	src := s + "Z"
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, src); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errs.BadDeadline.Printf("%q", s)
}
