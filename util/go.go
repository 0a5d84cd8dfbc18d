package util

import (
	"bytes"
	"runtime"
	"strconv"
)

// GoroutineID 当前协程id, 只用于日志和测试断言
func GoroutineID() int {
	var buf [64]byte
	n := runtime.Stack(buf[:], false) // "goroutine 18 [running]:..."
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.Atoi(string(b))
	return id
}
