package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPattern(t *testing.T) {
	assert.Equal(t, "https://app/cb*", fetchPattern("https://app/cb"))
	assert.Equal(t, `https://app/cb\?x=1*`, fetchPattern("https://app/cb?x=1"))
	assert.Equal(t, `https://app/\*\\*`, fetchPattern(`https://app/*\`))
}

func TestHandleEvent(t *testing.T) {
	b := NewChromeBackend("https://app/cb", true, nil)
	ctx := context.Background()

	b.handleEvent(ctx, &page.EventFrameNavigated{Frame: &cdp.Frame{
		URL:         "https://app/cb",
		URLFragment: "#access_token=XYZ",
	}})
	b.handleEvent(ctx, &page.EventFrameNavigated{Frame: &cdp.Frame{
		ParentID: "parent",
		URL:      "https://ads.example/frame",
	}})
	b.handleEvent(ctx, &page.EventNavigatedWithinDocument{URL: "https://www.instagram.com/#x"})
	b.handleEvent(ctx, &runtime.EventBindingCalled{Name: BindingName, Payload: `{"error_type":"x"}`})
	b.handleEvent(ctx, &runtime.EventBindingCalled{Name: "other", Payload: "ignored"})

	require.Len(t, b.events, 3)

	ev := <-b.Events()
	assert.Equal(t, EventNavigation, ev.Type)
	assert.Equal(t, "https://app/cb#access_token=XYZ", ev.URL)
	assert.Equal(t, "https://app/cb#access_token=XYZ", ev.NavigationEvent().URL)

	ev = <-b.Events()
	assert.Equal(t, EventNavigation, ev.Type)
	assert.Equal(t, "https://www.instagram.com/#x", ev.URL)

	ev = <-b.Events()
	assert.Equal(t, EventMessage, ev.Type)
	assert.Equal(t, `{"error_type":"x"}`, ev.Payload)
}

func TestEmit_DropsWhenFull(t *testing.T) {
	b := NewChromeBackend("https://app/cb", true, nil)
	for range EventBufferSize + 10 {
		b.emit(Event{Type: EventNavigation})
	}
	assert.Len(t, b.events, EventBufferSize)
}

func TestStop_WithoutStart(t *testing.T) {
	b := NewChromeBackend("https://app/cb", true, nil)

	assert.ErrorContains(t, b.Show("https://example.com"), "browser not started")
	assert.False(t, b.Visible())
	assert.NoError(t, b.StopLoading())

	b.Stop()
	b.Stop()

	// emitting after stop is a no-op
	b.emit(Event{Type: EventNavigation})
	_, ok := <-b.Events()
	assert.False(t, ok)
}

func TestReload_RequiresVisible(t *testing.T) {
	b := NewChromeBackend("https://app/cb", true, nil)
	assert.ErrorContains(t, b.Reload(), "not showing")
}

func TestMessageBridge(t *testing.T) {
	assert.Contains(t, messageBridge, `window["igLoginPostMessage"]`)
	assert.Contains(t, messageBridge, "event.origin !== window.location.origin")
}

func TestNavigateFailed(t *testing.T) {
	loadErr := errors.New("net::ERR_NAME_NOT_RESOLVED")

	t.Run("current tab reports an error event", func(t *testing.T) {
		b := NewChromeBackend("https://app/cb", true, nil)
		key := b.state.Remount()

		b.navigateFailed(context.Background(), key, loadErr)
		require.Len(t, b.events, 1)
		ev := <-b.Events()
		assert.Equal(t, EventError, ev.Type)
		assert.Contains(t, ev.Message, "ERR_NAME_NOT_RESOLVED")
	})

	t.Run("closed tab is quiet", func(t *testing.T) {
		b := NewChromeBackend("https://app/cb", true, nil)
		key := b.state.Remount()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		b.navigateFailed(ctx, key, loadErr)
		assert.Empty(t, b.events)
	})

	t.Run("remounted tab is quiet", func(t *testing.T) {
		b := NewChromeBackend("https://app/cb", true, nil)
		key := b.state.Remount()
		b.state.Remount()

		b.navigateFailed(context.Background(), key, loadErr)
		assert.Empty(t, b.events)
	})

	t.Run("abort after redirect capture is quiet", func(t *testing.T) {
		b := NewChromeBackend("https://app/cb", true, nil)
		key := b.state.Remount()
		b.redirected.Store(true)

		b.navigateFailed(context.Background(), key, errors.New("net::ERR_ABORTED"))
		assert.Empty(t, b.events)
	})
}
