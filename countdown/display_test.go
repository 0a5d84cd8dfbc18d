package countdown

import (
	"testing"
	"time"

	"github.com/fixkme/grouprefresh/clock"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 10, 14, 11, 0, 0, 0, time.UTC)

func TestFormat(t *testing.T) {
	cases := []struct {
		remaining time.Duration
		want      string
	}{
		{3665 * time.Second, "剩 1h 1m"},
		{45 * time.Second, "剩 45s"},
		{61 * time.Second, "剩 1m 1s"},
		{60 * time.Second, "剩 1m 0s"},
		{59999 * time.Millisecond, "剩 59s"},
		{3600 * time.Second, "剩 1h 0m"},
		{3599999 * time.Millisecond, "剩 59m 59s"},
		{500 * time.Millisecond, "剩 0s"},
		{26*time.Hour + 59*time.Minute + 59*time.Second, "剩 26h 59m"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Format(c.remaining), c.remaining.String())
	}
}

type recorder struct {
	texts   []string
	refresh int
}

func newDisplay(clk *clock.Fake, remaining time.Duration, r *recorder) *Display {
	return New(clk, epoch.Add(remaining), func() { r.refresh++ }, &Options{
		OnText: func(s string) { r.texts = append(r.texts, s) },
	})
}

func TestTicksEverySecond(t *testing.T) {
	clk := clock.NewFake(epoch)
	r := &recorder{}
	d := newDisplay(clk, 62*time.Second, r)
	d.Start()
	assert.Equal(t, "剩 1m 2s", d.Text())
	assert.Equal(t, []time.Duration{time.Second}, clk.Pending())

	clk.Advance(3 * time.Second)
	assert.Equal(t, []string{"剩 1m 2s", "剩 1m 1s", "剩 1m 0s", "剩 59s"}, r.texts)
	assert.Equal(t, Ticking, d.State())
	assert.Len(t, clk.Pending(), 1)
}

func TestExpiryScenario(t *testing.T) {
	clk := clock.NewFake(epoch)
	r := &recorder{}
	d := newDisplay(clk, 500*time.Millisecond, r)
	d.Start()
	assert.Equal(t, "剩 0s", d.Text())

	// 下一次tick时已经过期
	clk.Advance(time.Second)
	assert.Equal(t, ExpiredLabel, d.Text())
	assert.Equal(t, Expired, d.State())
	assert.Equal(t, 0, r.refresh)
	assert.Equal(t, []time.Duration{RefreshDelay}, clk.Pending())

	clk.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, r.refresh)
	clk.Advance(time.Millisecond)
	assert.Equal(t, 1, r.refresh)

	clk.Advance(time.Hour)
	assert.Equal(t, 1, r.refresh)
	assert.Empty(t, clk.Pending())
	assert.Equal(t, []string{"剩 0s", ExpiredLabel}, r.texts)
}

func TestAlreadyExpiredOnStart(t *testing.T) {
	clk := clock.NewFake(epoch)
	r := &recorder{}
	d := newDisplay(clk, -time.Minute, r)
	d.Start()
	assert.Equal(t, ExpiredLabel, d.Text())
	clk.Advance(RefreshDelay)
	assert.Equal(t, 1, r.refresh)
	assert.Len(t, clk.Armed(), 1)
}

func TestStopIsIdempotent(t *testing.T) {
	clk := clock.NewFake(epoch)
	r := &recorder{}
	d := newDisplay(clk, time.Hour, r)
	d.Start()
	d.Stop()
	d.Stop()
	assert.Empty(t, clk.Pending())

	clk.Advance(2 * time.Hour)
	assert.Equal(t, []string{"剩 1h 0m"}, r.texts)
	assert.Equal(t, 0, r.refresh)

	d.Start()
	assert.Empty(t, clk.Pending())
}

func TestStopKeepsPendingRefresh(t *testing.T) {
	clk := clock.NewFake(epoch)
	r := &recorder{}
	d := newDisplay(clk, 0, r)
	d.Start()
	assert.Equal(t, Expired, d.State())
	d.Stop()
	d.Stop()
	clk.Advance(time.Minute)
	assert.Equal(t, 1, r.refresh)
	assert.Empty(t, clk.Pending())
}

func TestNilOptions(t *testing.T) {
	clk := clock.NewFake(epoch)
	d := New(clk, epoch.Add(45*time.Second), nil, nil)
	d.Start()
	assert.Equal(t, "剩 45s", d.Text())
	clk.Advance(time.Minute)
	assert.Equal(t, ExpiredLabel, d.Text())
	assert.Equal(t, epoch.Add(45*time.Second), d.Deadline())
}
