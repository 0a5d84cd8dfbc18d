// Package timewheel 分层时间轮, 到期的定时器以Promise的形式投递到receiver.
// 所有对轮的修改都在run协程里串行执行, 调用方通过pushTask同步等待结果.
package timewheel

import (
	"time"

	"github.com/fixkme/grouprefresh/errs"
	"github.com/fixkme/grouprefresh/mlog"
	"github.com/fixkme/grouprefresh/util/times"
)

const (
	_SIEXP  = 1
	_SI     = 10 * (1 << _SIEXP) // 一个tick的长度 ms
	_LEVELS = 4
)

var (
	_LEVEL_DIVIS = [_LEVELS]int64{0, 10, 18, 24}
	_LEVEL_SLOTS = [_LEVELS]int64{1 << 10, 1 << 8, 1 << 6, 1 << 6}
	_LEVEL_MASKS = [_LEVELS]int64{}
	_LEVEL_TICKS = [_LEVELS]int64{} // 每层能容纳的最大tick数
)

func init() {
	for i := 0; i < _LEVELS; i++ {
		_LEVEL_MASKS[i] = _LEVEL_SLOTS[i] - 1
		if i > 0 {
			_LEVEL_TICKS[i] = _LEVEL_SLOTS[i] * _LEVEL_TICKS[i-1]
		} else {
			_LEVEL_TICKS[i] = _LEVEL_SLOTS[i]
		}
	}
}

// Tick 时间轮精度
const Tick = _SI * time.Millisecond

type Wheel struct {
	genId    int64
	lastTime int64
	slot     [_LEVELS]int64 // 每层的指针位置
	levels   [_LEVELS][]*slotList
	locs     map[int64]*entry
	taskch   chan func()
	stopped  chan struct{}
	now      func() int64
}

// New now为nil时使用times.NowMs
func New(now func() int64) *Wheel {
	if now == nil {
		now = times.NowMs
	}
	w := &Wheel{
		taskch:  make(chan func(), 10240),
		stopped: make(chan struct{}),
		locs:    make(map[int64]*entry),
		now:     now,
	}
	for i := 0; i < _LEVELS; i++ {
		w.levels[i] = make([]*slotList, _LEVEL_SLOTS[i])
	}
	return w
}

func (w *Wheel) Start(quit <-chan struct{}) {
	w.lastTime = w.now()
	go w.run(quit)
}

// Add when为到期的毫秒时间戳, 已经过期的在下一个tick触发
func (w *Wheel) Add(when int64, receiver chan<- *Promise) (id int64, err error) {
	e := &entry{when: when, receiver: receiver}
	err = w.pushTask(func() {
		w.genId++
		e.id = w.genId
		w.add(e)
		id = e.id
	})
	return
}

func (w *Wheel) Cancel(id int64) (ok bool, err error) {
	err = w.pushTask(func() {
		ok = w.remove(id) != nil
	})
	return
}

// Pending 还未触发的定时器数量
func (w *Wheel) Pending() (n int, err error) {
	err = w.pushTask(func() {
		n = len(w.locs)
	})
	return
}

func locate(ticks int64, cur *[_LEVELS]int64) (level, slot int64) {
	for level = 0; level < _LEVELS; level++ {
		if ticks < _LEVEL_TICKS[level] {
			return level, ((ticks >> _LEVEL_DIVIS[level]) + cur[level]) & _LEVEL_MASKS[level]
		}
	}
	level = _LEVELS - 1
	return level, _LEVEL_MASKS[level]
}

func (w *Wheel) add(e *entry) {
	w.addFrom(e, w.lastTime)
}

func (w *Wheel) addFrom(e *entry, base int64) {
	var ticks int64
	switch diff := e.when - base; {
	case diff <= 0:
		ticks = 1
	case diff >= _LEVEL_TICKS[_LEVELS-1]*_SI:
		ticks = _LEVEL_TICKS[_LEVELS-1] // 超出最高层, 挂到最后一格, 降级时再算
	default:
		ticks = (diff + _SI - 1) / _SI // 向上取整
	}
	level, slot := locate(ticks, &w.slot)
	w.put(level, slot, e)
}

func (w *Wheel) put(level, slot int64, e *entry) {
	l := w.levels[level][slot]
	if l == nil {
		l = newSlotList()
		w.levels[level][slot] = l
	}
	l.pushBack(e)
	w.locs[e.id] = e
}

func (w *Wheel) remove(id int64) *entry {
	e, ok := w.locs[id]
	if !ok {
		return nil
	}
	e.unlink()
	delete(w.locs, id)
	return e
}

func (w *Wheel) trigger(nowMs, tkTime int64) {
	l := w.levels[0][w.slot[0]]
	if l == nil {
		return
	}
	l.drain(func(e *entry) {
		if e.when > nowMs {
			// 高层降级下来还没到期, 重新加入
			w.addFrom(e, tkTime)
			return
		}
		delete(w.locs, e.id)
		select {
		case e.receiver <- &Promise{TimerId: e.id, NowTs: nowMs}:
			mlog.Debugf("timewheel trigger id:%d, when:%d, now:%d", e.id, e.when, nowMs)
		default:
			// receiver满了, 放到下一个tick再试
			w.put(0, (w.slot[0]+1)&_LEVEL_MASKS[0], e)
		}
	})
}

func (w *Wheel) tick(nowMs, tkTime int64) {
	w.slot[0] = (w.slot[0] + 1) & _LEVEL_MASKS[0]
	w.trigger(nowMs, tkTime)
	// 低层转完一圈, 高层前进一格并把该格的定时器降级
	for i := 1; i < _LEVELS; i++ {
		if w.slot[i-1] != 0 {
			break
		}
		w.slot[i] = (w.slot[i] + 1) & _LEVEL_MASKS[i]
		l := w.levels[i][w.slot[i]]
		if l == nil {
			continue
		}
		l.drain(func(e *entry) {
			w.addFrom(e, tkTime)
		})
	}
}

func (w *Wheel) run(quit <-chan struct{}) {
	defer close(w.stopped)
	tickTimeSpan := time.Millisecond * _SI
	tickTimer := time.NewTimer(tickTimeSpan)
	defer tickTimer.Stop()
	for {
		select {
		case <-quit:
			return
		case <-tickTimer.C:
			nowMs := w.now()
			tk := w.lastTime + _SI
			w.lastTime += _SI * ((nowMs - w.lastTime) / _SI)
			for ; tk <= w.lastTime; tk += _SI {
				w.tick(nowMs, tk)
			}
			tickTimer.Reset(tickTimeSpan)
		case fn := <-w.taskch:
			fn()
		}
	}
}

func (w *Wheel) pushTask(f func()) error {
	select {
	case <-w.stopped:
		return errs.ClockClosed
	default:
	}
	done := make(chan struct{})
	ff := func() {
		defer close(done)
		f()
	}
	select {
	case w.taskch <- ff:
	default:
		return errs.ClockClosed.Printf("task channel full")
	}
	select {
	case <-done:
		return nil
	case <-w.stopped:
		return errs.ClockClosed
	}
}
