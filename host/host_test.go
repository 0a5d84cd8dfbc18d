package host

import (
	"testing"
	"time"

	"github.com/fixkme/grouprefresh/clock"
	"github.com/fixkme/grouprefresh/countdown"
	"github.com/fixkme/grouprefresh/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 10, 14, 11, 0, 0, 0, time.UTC)

// 用Fake时钟模拟事件循环, Post直接执行
type fakeRuntime struct {
	*clock.Fake
}

func (fakeRuntime) Post(f func()) error {
	f()
	return nil
}

func setup(t *testing.T, markup string) (*clock.Fake, *page.Document, *Host, *int) {
	t.Helper()
	clk := clock.NewFake(epoch)
	doc, err := page.ParseString(markup)
	require.NoError(t, err)
	refreshes := 0
	h := New(fakeRuntime{clk}, doc, func() { refreshes++ })
	h.Attach()
	return clk, doc, h, &refreshes
}

const home = `<body>
<main data-next-deadline="2026-10-14T11:01:30">
  <div id="group-list">
    <div class="group">奶茶團 <span id="cd-1" data-countdown="2026-10-14T11:00:45"></span></div>
  </div>
</main>
</body>`

func TestMountAll(t *testing.T) {
	clk, doc, h, refreshes := setup(t, home)
	h.MountAll()

	assert.Equal(t, map[string]int{AttrNextDeadline: 1, AttrCountdown: 1}, h.Mounted())
	txt, _ := doc.Text("cd-1")
	assert.Equal(t, "剩 45s", txt)
	// 调度器60s, 倒计时1s
	assert.ElementsMatch(t, []time.Duration{60 * time.Second, time.Second}, clk.Pending())
	assert.Equal(t, 0, *refreshes)
}

func TestCountdownExpiryRefreshes(t *testing.T) {
	clk, doc, h, refreshes := setup(t, home)
	h.MountAll()

	clk.Advance(45 * time.Second)
	txt, _ := doc.Text("cd-1")
	assert.Equal(t, countdown.ExpiredLabel, txt)
	assert.Equal(t, 0, *refreshes)

	clk.Advance(time.Second)
	assert.Equal(t, 1, *refreshes)
}

func TestSwapDuringExpiryDelayStillRefreshes(t *testing.T) {
	clk, doc, h, refreshes := setup(t, home)
	h.MountAll()

	clk.Advance(45 * time.Second)
	// 延迟刷新之前区域被别的请求替换, 倒计时被卸载
	require.NoError(t, doc.SetInnerHTML("group-list", `<p>no groups</p>`))
	assert.Equal(t, map[string]int{AttrNextDeadline: 1}, h.Mounted())

	clk.Advance(time.Second)
	assert.Equal(t, 1, *refreshes)
}

func TestSwapRemountsInsideRegion(t *testing.T) {
	clk, doc, h, _ := setup(t, home)
	h.MountAll()

	require.NoError(t, doc.SetInnerHTML("group-list",
		`<div class="group">便當團 <span data-countdown="2026-10-14T13:00:00"></span></div>`+
			`<div class="group">飲料團 <span data-countdown="2026-10-14T11:30:00"></span></div>`))

	assert.Equal(t, map[string]int{AttrNextDeadline: 1, AttrCountdown: 2}, h.Mounted())
	marks := doc.Scan("group-list", AttrCountdown)
	require.Len(t, marks, 2)
	first, _ := doc.Text(marks[0].ID)
	second, _ := doc.Text(marks[1].ID)
	assert.Equal(t, "剩 2h 0m", first)
	assert.Equal(t, "剩 30m 0s", second)

	// 旧的倒计时已经停掉: 调度器1个 + 新倒计时2个
	assert.Len(t, clk.Pending(), 3)
}

func TestSwapWithSameIDRemounts(t *testing.T) {
	clk, doc, h, refreshes := setup(t, home)
	h.MountAll()

	require.NoError(t, doc.SetInnerHTML("group-list", `<span id="cd-1" data-countdown="2026-10-14T10:00:00"></span>`))
	txt, _ := doc.Text("cd-1")
	assert.Equal(t, countdown.ExpiredLabel, txt)
	clk.Advance(time.Second)
	assert.Equal(t, 1, *refreshes)
}

func TestBadDeadlineSkipped(t *testing.T) {
	_, _, h, _ := setup(t, `<div data-next-deadline="soon"></div><span data-countdown=""></span><div data-next-deadline=""></div>`)
	h.MountAll()
	// 空的截止时间挂一个不会触发的调度器
	assert.Equal(t, map[string]int{AttrNextDeadline: 1}, h.Mounted())
}

func TestUnmountAll(t *testing.T) {
	clk, _, h, refreshes := setup(t, home)
	h.MountAll()
	h.UnmountAll()
	assert.Empty(t, h.Mounted())
	assert.Empty(t, clk.Pending())
	clk.Advance(time.Hour)
	assert.Equal(t, 0, *refreshes)
}
