// Package host mounts refresh components declared in page markup and
// re-mounts them whenever a fragment swap replaces their elements.
//
//	<div data-next-deadline="2026-10-14T12:00:00">  deadline scheduler
//	<span data-countdown="2026-10-14T12:00:00">     countdown, text written into the span
package host

import (
	"github.com/fixkme/grouprefresh/clock"
	"github.com/fixkme/grouprefresh/countdown"
	"github.com/fixkme/grouprefresh/deadline"
	"github.com/fixkme/grouprefresh/mlog"
	"github.com/fixkme/grouprefresh/page"
	"github.com/fixkme/grouprefresh/util/times"
)

const (
	AttrNextDeadline = "data-next-deadline"
	AttrCountdown    = "data-countdown"
)

// Runtime is the event loop the components live on.
type Runtime interface {
	clock.Clock
	Post(f func()) error
}

type component interface {
	Start()
	Stop()
}

type Host struct {
	rt      Runtime
	doc     *page.Document
	action  func()
	mounted map[string]component // 元素id -> 组件
	kinds   map[string]string
}

func New(rt Runtime, doc *page.Document, action func()) *Host {
	return &Host{
		rt:      rt,
		doc:     doc,
		action:  action,
		mounted: make(map[string]component),
		kinds:   make(map[string]string),
	}
}

// Attach re-mounts on every swap. Swaps may happen on any goroutine; the
// re-mount is posted to the runtime.
func (h *Host) Attach() {
	h.doc.OnSwap(func(region string) {
		if err := h.rt.Post(func() { h.Remount(region) }); err != nil {
			mlog.Warnf("host remount #%s not posted: %v", region, err)
		}
	})
}

// MountAll mounts every declared component on the page. Runs on the runtime.
func (h *Host) MountAll() {
	h.mount("")
}

// Remount tears down components whose elements were replaced inside region
// and mounts the ones its new content declares. Runs on the runtime.
func (h *Host) Remount(region string) {
	for id, c := range h.mounted {
		if !h.doc.HasRegion(id) || h.doc.Contains(region, id) {
			mlog.Debugf("host unmount %s #%s", h.kinds[id], id)
			c.Stop()
			delete(h.mounted, id)
			delete(h.kinds, id)
		}
	}
	h.mount(region)
}

func (h *Host) mount(region string) {
	for _, m := range h.doc.Scan(region, AttrNextDeadline) {
		if _, ok := h.mounted[m.ID]; ok {
			continue
		}
		dl, err := times.ParseDeadline(m.Value)
		if err != nil {
			mlog.Warnf("host skip #%s: %v", m.ID, err)
			continue
		}
		h.start(m.ID, AttrNextDeadline, deadline.New(h.rt, dl, h.action))
	}
	for _, m := range h.doc.Scan(region, AttrCountdown) {
		if _, ok := h.mounted[m.ID]; ok {
			continue
		}
		dl, err := times.ParseDeadline(m.Value)
		if err != nil || dl == nil {
			mlog.Warnf("host skip countdown #%s: %q %v", m.ID, m.Value, err)
			continue
		}
		id := m.ID
		h.start(id, AttrCountdown, countdown.New(h.rt, *dl, h.action, &countdown.Options{
			OnText: func(text string) {
				if err := h.doc.SetText(id, text); err != nil {
					mlog.Debugf("countdown #%s text dropped: %v", id, err)
				}
			},
		}))
	}
}

func (h *Host) start(id, kind string, c component) {
	h.mounted[id] = c
	h.kinds[id] = kind
	mlog.Debugf("host mount %s #%s", kind, id)
	c.Start()
}

// UnmountAll stops every component. Runs on the runtime.
func (h *Host) UnmountAll() {
	for id, c := range h.mounted {
		c.Stop()
		delete(h.mounted, id)
		delete(h.kinds, id)
	}
}

// Mounted counts live components by attribute.
func (h *Host) Mounted() map[string]int {
	out := make(map[string]int)
	for _, k := range h.kinds {
		out[k]++
	}
	return out
}
