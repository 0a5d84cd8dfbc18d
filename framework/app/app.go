package app

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/fixkme/grouprefresh/mlog"
)

// 全局状态
const (
	AppStateNone = iota // 未开始或已停止
	AppStateInit        // 正在初始化中
	AppStateRun         // 正在运行中
	AppStateStop        // 正在停止中
)

type Module interface {
	OnInit() error // 初始化
	Destroy()      // 销毁
	Run()          // 启动, 阻塞到Destroy
	Name() string  // 名字
}

// App 中的 modules 在初始化之后不能变更
type App struct {
	mods  []Module
	state int32
	sig   chan os.Signal
	wg    sync.WaitGroup
}

func New() *App {
	return &App{sig: make(chan os.Signal, 1)}
}

func (app *App) setState(s int32) {
	atomic.StoreInt32(&app.state, s)
}

func (app *App) GetState() int32 {
	return atomic.LoadInt32(&app.state)
}

func (app *App) start(mods ...Module) error {
	if app.GetState() != AppStateNone || len(app.mods) != 0 {
		return fmt.Errorf("app cannot start twice")
	}
	mlog.Info("app starting up")
	app.setState(AppStateInit)
	for i, m := range mods {
		if err := m.OnInit(); err != nil {
			// 已经初始化的模块倒序销毁
			for j := i - 1; j >= 0; j-- {
				destroy(mods[j])
			}
			app.setState(AppStateNone)
			return fmt.Errorf("module %s init error: %w", m.Name(), err)
		}
		app.mods = append(app.mods, m)
	}
	for _, m := range app.mods {
		app.wg.Add(1)
		go func(m Module) {
			defer app.wg.Done()
			m.Run()
		}(m)
	}
	app.setState(AppStateRun)
	mlog.Info("app started")
	return nil
}

func (app *App) stop() {
	if app.GetState() == AppStateStop {
		return
	}
	mlog.Info("app stop begin")
	app.setState(AppStateStop)
	// 先进后出
	for i := len(app.mods) - 1; i >= 0; i-- {
		mlog.Infof("app stop module %s", app.mods[i].Name())
		destroy(app.mods[i])
	}
	app.wg.Wait()
	app.setState(AppStateNone)
	mlog.Info("app stopped")
}

func destroy(m Module) {
	defer func() {
		if r := recover(); r != nil {
			mlog.Errorf("%s module destroy panic: %v\n%s", m.Name(), r, debug.Stack())
		}
	}()
	m.Destroy()
}

// Run 初始化并启动模块, 阻塞到收到SIGINT/SIGTERM或Stop
func (app *App) Run(mods ...Module) error {
	if err := app.start(mods...); err != nil {
		return err
	}
	signal.Notify(app.sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(app.sig)
	for {
		sig := <-app.sig
		mlog.Infof("app closing down (signal: %v)", sig)
		if sig != syscall.SIGHUP {
			break
		}
	}
	app.stop()
	return nil
}

func (app *App) Stop() {
	select {
	case app.sig <- syscall.SIGTERM:
	default:
	}
}
