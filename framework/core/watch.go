package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fixkme/grouprefresh/framework/config"
	"github.com/fixkme/grouprefresh/fragment"
	"github.com/fixkme/grouprefresh/host"
	"github.com/fixkme/grouprefresh/mlog"
	"github.com/fixkme/grouprefresh/page"
	"github.com/fixkme/grouprefresh/refresh"
)

// WatchModule 加载页面, 挂载页面上声明的组件, 截止时局部刷新
type WatchModule struct {
	conf  *config.AppConfig
	lm    *LoopModule
	doc   atomic.Pointer[page.Document]
	coord *refresh.Coordinator
	host  *host.Host
	quit  chan struct{}
}

func NewWatchModule(conf *config.AppConfig, lm *LoopModule) *WatchModule {
	return &WatchModule{conf: conf, lm: lm, quit: make(chan struct{})}
}

func (m *WatchModule) OnInit() error {
	// 确保 Loop 在前面已经初始化
	if m.lm == nil || m.lm.Loop == nil {
		return fmt.Errorf("LoopModule is not initialized")
	}
	timeout := time.Duration(m.conf.RequestTimeoutMs) * time.Millisecond
	client, err := fragment.NewClient(&fragment.Options{
		BaseURL:  m.conf.BaseURL,
		Timeout:  timeout,
		MaxBytes: m.conf.MaxFragmentBytes,
	})
	if err != nil {
		return err
	}
	body, err := client.Fetch(context.Background(), "", m.conf.PagePath)
	if err != nil {
		return fmt.Errorf("load page %s: %w", m.conf.PagePath, err)
	}
	doc, err := page.ParseString(body)
	if err != nil {
		return err
	}
	m.doc.Store(doc)
	if !doc.HasRegion(m.conf.Target) {
		mlog.Warnf("page %s has no #%s, refreshes will be skipped", m.conf.PagePath, m.conf.Target)
	}
	m.coord = refresh.NewCoordinator(doc, client, refresh.Options{
		Target:  m.conf.Target,
		Path:    m.conf.Endpoint,
		Timeout: timeout,
	})
	m.host = host.New(m.lm.Loop, doc, m.coord.Trigger)
	m.host.Attach()
	return nil
}

func (m *WatchModule) Run() {
	if err := m.lm.Loop.Post(m.host.MountAll); err != nil {
		mlog.Errorf("watch mount failed: %v", err)
	}
	<-m.quit
}

func (m *WatchModule) Destroy() {
	// 先等请求结束, 它触发的重新挂载排在卸载之前
	m.coord.Close()
	if err := m.lm.Loop.Call(m.host.UnmountAll); err != nil {
		mlog.Warnf("watch unmount: %v", err)
	}
	st := m.coord.Stats()
	mlog.Infof("watch stopped, triggers:%d requests:%d failures:%d", st.Triggers, st.Requests, st.Failures)
	close(m.quit)
}

func (m *WatchModule) Name() string {
	return "Watch"
}

func (m *WatchModule) Document() *page.Document {
	return m.doc.Load()
}
