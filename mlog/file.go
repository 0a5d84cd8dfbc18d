package mlog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	maxLogFileSize      = int64(100 * 1024 * 1024) // 100 MB
	rotateCheckInterval = 30 * time.Second

	defaultDirMode  os.FileMode = 0755
	defaultFileMode os.FileMode = 0644
	defaultFileFlag int         = os.O_APPEND | os.O_CREATE | os.O_WRONLY
)

type fileLogger struct {
	file   *os.File
	ll     *log.Logger
	buff   chan string
	level  Level
	stdOut bool
}

func newFileLogger(logpath, logName string, level Level, stdOut bool) (*fileLogger, error) {
	// 默认使用当前路径
	if len(logpath) == 0 {
		logpath = "."
	}
	if logName == "" {
		logName = "grouprefresh"
	}
	logfile, err := openFile(filepath.Join(logpath, logName+".log"))
	if err != nil {
		return nil, err
	}
	return &fileLogger{
		file:   logfile,
		ll:     log.New(logfile, "", log.Ldate|log.Lmicroseconds),
		buff:   make(chan string, 0x10000),
		level:  level,
		stdOut: stdOut,
	}, nil
}

func (me *fileLogger) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("mlog recover error %v\n", r)
			}
			me.file.Close()
			wg.Done()
		}()

		timer := time.NewTimer(rotateCheckInterval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case str := <-me.buff:
						me.write(str)
					default:
						return
					}
				}
			case str := <-me.buff:
				me.write(str)
			case <-timer.C:
				me.rotateIfNeeded()
				timer.Reset(rotateCheckInterval)
			}
		}
	}()
}

func (me *fileLogger) write(str string) {
	if me.stdOut {
		log.Println(str)
	}
	me.ll.Println(str)
}

func (me *fileLogger) rotateIfNeeded() {
	info, err := os.Stat(me.file.Name())
	if err != nil {
		log.Println("mlog stat error", err)
		return
	}
	if info.Size() <= maxLogFileSize {
		return
	}
	name := me.file.Name()
	if err = os.Rename(name, fmt.Sprintf("%s.%s", name, time.Now().Format("20060102_150405"))); err != nil {
		log.Println("mlog rotate error", err)
		return
	}
	file, err := openFile(name)
	if err != nil {
		log.Println("mlog reopen error", err)
		return
	}
	me.ll.SetOutput(file)
	me.file.Close()
	me.file = file
}

func (me *fileLogger) push(level Level, s string) {
	if me.level >= level {
		me.buff <- getLevelTag(level) + s
	}
}

func (me *fileLogger) Debug(args ...any) { me.push(DebugLevel, fmt.Sprint(args...)) }
func (me *fileLogger) Info(args ...any)  { me.push(InfoLevel, fmt.Sprint(args...)) }
func (me *fileLogger) Warn(args ...any)  { me.push(WarnLevel, fmt.Sprint(args...)) }
func (me *fileLogger) Error(args ...any) { me.push(ErrorLevel, fmt.Sprint(args...)) }

func (me *fileLogger) Debugf(format string, args ...any) {
	me.push(DebugLevel, fmt.Sprintf(format, args...))
}

func (me *fileLogger) Infof(format string, args ...any) {
	me.push(InfoLevel, fmt.Sprintf(format, args...))
}

func (me *fileLogger) Warnf(format string, args ...any) {
	me.push(WarnLevel, fmt.Sprintf(format, args...))
}

func (me *fileLogger) Errorf(format string, args ...any) {
	me.push(ErrorLevel, fmt.Sprintf(format, args...))
}

func openFile(fullpath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(fullpath), defaultDirMode); err != nil {
		return nil, err
	}
	return os.OpenFile(fullpath, defaultFileFlag, defaultFileMode)
}
