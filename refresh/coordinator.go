// Package refresh implements the refresh action shared by the deadline
// scheduler and the countdown display: if the target region exists, fetch
// the fragment endpoint and swap the response into it.
package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fixkme/grouprefresh/fragment"
	"github.com/fixkme/grouprefresh/mlog"
)

const (
	DefaultTarget = "group-list"
	DefaultPath   = "/home/groups"
)

type Document interface {
	fragment.Target
	HasRegion(id string) bool
}

type Swapper interface {
	Swap(ctx context.Context, doc fragment.Target, target, path string) error
}

type Options struct {
	Target  string
	Path    string
	Timeout time.Duration
}

type Stats struct {
	Triggers int64 // 区域存在时的触发次数
	Requests int64 // 实际发出的请求
	Failures int64
}

// Coordinator coalesces refreshes of one target: triggers that arrive while
// a request is in flight join it instead of issuing a second GET.
type Coordinator struct {
	doc     Document
	swapper Swapper
	target  string
	path    string
	timeout time.Duration
	group   singleflight.Group
	mu      sync.Mutex // 保护closed和wg.Add
	closed  bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	triggers atomic.Int64
	requests atomic.Int64
	failures atomic.Int64
}

func NewCoordinator(doc Document, swapper Swapper, opt Options) *Coordinator {
	if opt.Target == "" {
		opt.Target = DefaultTarget
	}
	if opt.Path == "" {
		opt.Path = DefaultPath
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		doc:     doc,
		swapper: swapper,
		target:  opt.Target,
		path:    opt.Path,
		timeout: opt.Timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Coordinator) Target() string { return c.target }

// Trigger is the refresh action. The region check is synchronous; the GET
// runs on its own goroutine so the caller's event loop never blocks.
func (c *Coordinator) Trigger() {
	if !c.doc.HasRegion(c.target) {
		mlog.Debugf("refresh skipped, region #%s not on page", c.target)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		mlog.Debugf("refresh #%s dropped, coordinator closed", c.target)
		return
	}
	c.triggers.Add(1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.swap(c.ctx); err != nil {
			mlog.Warnf("refresh #%s from %s failed: %v", c.target, c.path, err)
		}
	}()
}

// Refresh is the synchronous form of Trigger. It reports false without
// touching the network when the region is absent.
func (c *Coordinator) Refresh(ctx context.Context) (bool, error) {
	if !c.doc.HasRegion(c.target) {
		return false, nil
	}
	c.triggers.Add(1)
	return true, c.swap(ctx)
}

func (c *Coordinator) swap(ctx context.Context) error {
	_, err, shared := c.group.Do(c.target+" "+c.path, func() (any, error) {
		c.requests.Add(1)
		rctx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		err := c.swapper.Swap(rctx, c.doc, c.target, c.path)
		if err != nil {
			c.failures.Add(1)
		}
		return nil, err
	})
	if shared {
		mlog.Debugf("refresh #%s coalesced", c.target)
	}
	return err
}

func (c *Coordinator) Stats() Stats {
	return Stats{
		Triggers: c.triggers.Load(),
		Requests: c.requests.Load(),
		Failures: c.failures.Load(),
	}
}

// Wait blocks until every triggered refresh has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight refreshes and waits for them. Triggers after
// Close are dropped.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}
