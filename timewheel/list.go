package timewheel

// Promise 到期通知
type Promise struct {
	TimerId int64
	NowTs   int64 // 触发时的时间戳 毫秒
}

type entry struct {
	id         int64
	when       int64 // 到期时间戳 毫秒
	receiver   chan<- *Promise
	prev, next *entry
}

func (e *entry) unlink() {
	if e.prev == nil || e.next == nil {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

// slotList 带哨兵的双向链表
type slotList struct {
	root entry
}

func newSlotList() *slotList {
	l := new(slotList)
	l.root.prev = &l.root
	l.root.next = &l.root
	return l
}

func (l *slotList) pushBack(e *entry) {
	tail := l.root.prev
	tail.next = e
	e.prev = tail
	e.next = &l.root
	l.root.prev = e
}

func (l *slotList) empty() bool {
	return l.root.next == &l.root
}

// drain 逐个摘下节点再回调, fn里可以往任意链表重新挂节点
func (l *slotList) drain(fn func(e *entry)) {
	for !l.empty() {
		e := l.root.next
		e.unlink()
		fn(e)
	}
}
