package window

import (
	"log/slog"
	"sync/atomic"

	"github.com/mxplusb/epsilon/src/render"
)

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(render.NopLogger())
}

// SetLogger sets the window logger. Pass nil to silence it.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = render.NopLogger()
	}
	loggerPtr.Store(l)
}

func Logger() *slog.Logger {
	return loggerPtr.Load()
}
