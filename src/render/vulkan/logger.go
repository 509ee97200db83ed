package vulkan

import (
	"log/slog"
	"sync/atomic"

	"github.com/mxplusb/epsilon/src/render"
)

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(render.NopLogger())
}

// SetLogger sets the logger for the Vulkan backend. Device selection and
// object lifecycle go to Info, validation fallbacks to Warn.
// Pass nil to silence it again.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = render.NopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the backend logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
