package refresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fixkme/grouprefresh/errs"
	"github.com/fixkme/grouprefresh/fragment"
	"github.com/fixkme/grouprefresh/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	doc   *page.Document
	coord *Coordinator
	hits  atomic.Int64
}

func newFixture(t *testing.T, markup string, h http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	doc, err := page.ParseString(markup)
	require.NoError(t, err)
	client, err := fragment.NewClient(&fragment.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	f.doc = doc
	f.coord = NewCoordinator(doc, client, Options{Timeout: time.Second})
	t.Cleanup(f.coord.Close)
	return f
}

func fragmentBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

func TestTriggerSwapsRegion(t *testing.T) {
	f := newFixture(t, `<div id="group-list">old</div>`, fragmentBody("<p>new</p>"))
	f.coord.Trigger()
	f.coord.Wait()

	inner, _ := f.doc.InnerHTML("group-list")
	assert.Equal(t, "<p>new</p>", inner)
	assert.Equal(t, Stats{Triggers: 1, Requests: 1}, f.coord.Stats())
}

func TestTriggerWithoutRegionIsNoop(t *testing.T) {
	f := newFixture(t, `<div id="elsewhere"></div>`, fragmentBody("<p>new</p>"))
	f.coord.Trigger()
	f.coord.Wait()

	ok, err := f.coord.Refresh(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), f.hits.Load())
	assert.Equal(t, Stats{}, f.coord.Stats())
}

func TestConcurrentTriggersCoalesce(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, `<div id="group-list"></div>`, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("<p>once</p>"))
	})

	f.coord.Trigger()
	require.Eventually(t, func() bool { return f.hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	f.coord.Trigger()
	time.Sleep(100 * time.Millisecond)
	close(release)
	f.coord.Wait()

	st := f.coord.Stats()
	assert.Equal(t, int64(2), st.Triggers)
	assert.Equal(t, int64(1), st.Requests)
	assert.Equal(t, int64(1), f.hits.Load())
}

func TestRefreshFailureNotRetried(t *testing.T) {
	f := newFixture(t, `<div id="group-list">keep</div>`, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ok, err := f.coord.Refresh(context.Background())
	assert.True(t, ok)
	assert.True(t, errors.Is(err, errs.BadStatus))

	f.coord.Trigger()
	f.coord.Wait()
	assert.Equal(t, int64(2), f.hits.Load())
	assert.Equal(t, int64(2), f.coord.Stats().Failures)
	inner, _ := f.doc.InnerHTML("group-list")
	assert.Equal(t, "keep", inner)
}

func TestTriggerAfterCloseDropped(t *testing.T) {
	f := newFixture(t, `<div id="group-list">keep</div>`, fragmentBody("<p>new</p>"))
	f.coord.Close()
	f.coord.Trigger()
	f.coord.Close()

	assert.Equal(t, int64(0), f.hits.Load())
	assert.Equal(t, Stats{}, f.coord.Stats())
	inner, _ := f.doc.InnerHTML("group-list")
	assert.Equal(t, "keep", inner)
}

func TestCloseWaitsForInFlight(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, `<div id="group-list"></div>`, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("<p>late</p>"))
	})
	f.coord.Trigger()
	require.Eventually(t, func() bool { return f.hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		f.coord.Close()
		close(done)
	}()
	// Close期间的触发被丢弃
	require.Eventually(t, func() bool {
		f.coord.mu.Lock()
		defer f.coord.mu.Unlock()
		return f.coord.closed
	}, time.Second, 5*time.Millisecond)
	f.coord.Trigger()
	close(release)
	<-done

	assert.Equal(t, int64(1), f.coord.Stats().Triggers)
	assert.Equal(t, int64(1), f.hits.Load())
}
