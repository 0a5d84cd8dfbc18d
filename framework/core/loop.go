package core

import (
	"github.com/fixkme/grouprefresh/eventloop"
)

// LoopModule 承载所有组件回调的事件循环
type LoopModule struct {
	Loop      *eventloop.Loop
	taskSize  int
	timerSize int
}

func NewLoopModule(taskSize, timerSize int) *LoopModule {
	return &LoopModule{taskSize: taskSize, timerSize: timerSize}
}

func (m *LoopModule) OnInit() error {
	m.Loop = eventloop.New(m.taskSize, m.timerSize)
	return nil
}

func (m *LoopModule) Run() {
	m.Loop.Run()
}

func (m *LoopModule) Destroy() {
	m.Loop.Close()
}

func (m *LoopModule) Name() string {
	return "EventLoop"
}
