package render

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExtent(t *testing.T) {
	require.True(t, Extent{}.Empty())
	require.True(t, Extent{0, 600}.Empty())
	require.True(t, Extent{800, 0}.Empty())
	require.False(t, Extent{1, 1}.Empty())
	require.Equal(t, "800x600", Extent{800, 600}.String())

	lo, hi := Extent{1, 1}, Extent{4096, 2048}
	require.True(t, Extent{1, 1}.Within(lo, hi))
	require.True(t, Extent{4096, 2048}.Within(lo, hi))
	require.False(t, Extent{4096, 2049}.Within(lo, hi))
	require.False(t, Extent{0, 100}.Within(lo, hi))
}

func TestViewportFor(t *testing.T) {
	require.Equal(t, Viewport{Width: 1024, Height: 768, MaxDepth: 1}, ViewportFor(Extent{1024, 768}))
}

func TestCompositeAlphaFirst(t *testing.T) {
	require.Equal(t, CompositeAlpha(0), CompositeAlpha(0).First())
	require.Equal(t, CompositeAlpha(1), CompositeAlpha(0b1111).First())
	require.Equal(t, CompositeAlpha(0b100), CompositeAlpha(0b1100).First())
}

func TestOptions(t *testing.T) {
	o := newOptions(nil)
	require.Equal(t, DefaultClearColor, o.clear)
	require.Equal(t, time.Duration(-1), o.fenceTimeout)
	require.Equal(t, PresentModeDefault, o.presentMode)
	require.False(t, o.waitEvents)
	require.Same(t, Logger(), o.log())

	l := NopLogger()
	o = newOptions([]Option{
		WithFenceTimeout(0),
		WithWaitEvents(true),
		WithPresentMode(2),
		WithLogger(l),
	})
	require.Equal(t, time.Duration(-1), o.fenceTimeout)
	require.True(t, o.waitEvents)
	require.Equal(t, PresentMode(2), o.presentMode)
	require.Same(t, l, o.log())

	o = newOptions([]Option{WithFenceTimeout(time.Second)})
	require.Equal(t, time.Second, o.fenceTimeout)
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)
	l := NopLogger()
	SetLogger(l)
	require.Same(t, l, Logger())
	SetLogger(nil)
	require.NotNil(t, Logger())
	require.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}
