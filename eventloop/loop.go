// Package eventloop 单协程事件循环, 投递的任务和到期的定时器回调都在同一个协程里执行.
package eventloop

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/fixkme/grouprefresh/clock"
	"github.com/fixkme/grouprefresh/errs"
	"github.com/fixkme/grouprefresh/mlog"
	"github.com/fixkme/grouprefresh/timewheel"
	"github.com/fixkme/grouprefresh/util"
	"github.com/fixkme/grouprefresh/util/times"
)

type Loop struct {
	tasks        chan func()
	fired        chan *timewheel.Promise
	wheel        *timewheel.Wheel
	wheelQuit    chan struct{}
	closeSig     chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
	mu           sync.Mutex
	pending      map[int64]func() // 定时器id -> 回调
	panicHandler func(r any)
}

var _ clock.Clock = (*Loop)(nil)

func New(taskChSize, timerChSize int) *Loop {
	if taskChSize < 64 {
		taskChSize = 64
	}
	if timerChSize < 64 {
		timerChSize = 64
	}
	l := &Loop{
		tasks:     make(chan func(), taskChSize),
		fired:     make(chan *timewheel.Promise, timerChSize),
		wheel:     timewheel.New(times.NowMs),
		wheelQuit: make(chan struct{}),
		closeSig:  make(chan struct{}),
		done:      make(chan struct{}),
		pending:   make(map[int64]func()),
	}
	l.panicHandler = func(r any) {
		mlog.Errorf("eventloop callback panic: %v\n%s", r, debug.Stack())
	}
	l.wheel.Start(l.wheelQuit)
	return l
}

func (l *Loop) SetPanicHandler(f func(r any)) {
	if f != nil {
		l.panicHandler = f
	}
}

// Now 与定时器使用同一个时间源
func (l *Loop) Now() time.Time {
	return times.Now()
}

// AfterFunc 可以在任意协程调用, f总是在循环协程执行
func (l *Loop) AfterFunc(d time.Duration, f func()) clock.Timer {
	if d < 0 {
		d = 0
	}
	// 超长的延迟截断到MaxInt64, 不会回绕成已过期
	when, _ := util.AddInt64(times.NowMs(), d.Milliseconds())
	l.mu.Lock()
	defer l.mu.Unlock()
	id, err := l.wheel.Add(when, l.fired)
	if err != nil {
		mlog.Warnf("eventloop arm timer failed: %v", err)
		return stoppedTimer{}
	}
	l.pending[id] = f
	return &loopTimer{loop: l, id: id}
}

type loopTimer struct {
	loop *Loop
	id   int64
}

func (t *loopTimer) Stop() bool {
	l := t.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.pending[t.id]; !ok {
		return false
	}
	delete(l.pending, t.id)
	if _, err := l.wheel.Cancel(t.id); err != nil {
		mlog.Debugf("eventloop cancel timer %d: %v", t.id, err)
	}
	return true
}

type stoppedTimer struct{}

func (stoppedTimer) Stop() bool { return false }

// Post 非阻塞投递
func (l *Loop) Post(f func()) error {
	select {
	case <-l.closeSig:
		return errs.LoopClosed
	default:
	}
	select {
	case l.tasks <- f:
		return nil
	default:
		return errs.LoopBusy
	}
}

// Call 在循环协程执行f并等待完成
func (l *Loop) Call(f func()) error {
	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		f()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-l.done:
		return errs.LoopClosed
	}
}

func (l *Loop) Run() {
	defer l.onClose()
	for {
		select {
		case <-l.closeSig:
			return
		case cb := <-l.tasks:
			l.exec(cb)
		case p := <-l.fired:
			l.dispatch(p)
		}
	}
}

func (l *Loop) dispatch(p *timewheel.Promise) {
	l.mu.Lock()
	cb, ok := l.pending[p.TimerId]
	delete(l.pending, p.TimerId)
	l.mu.Unlock()
	if !ok {
		// 已经Stop了
		return
	}
	l.exec(cb)
}

func (l *Loop) exec(cb func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panicHandler(r)
		}
	}()
	cb()
}

// onClose 执行完已经投递的任务, 未触发的定时器直接丢弃
func (l *Loop) onClose() {
	defer close(l.done)
	for {
		select {
		case cb := <-l.tasks:
			l.exec(cb)
		default:
			close(l.wheelQuit)
			l.mu.Lock()
			clear(l.pending)
			l.mu.Unlock()
			return
		}
	}
}

func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.closeSig)
	})
}

// Done 循环退出后关闭
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
