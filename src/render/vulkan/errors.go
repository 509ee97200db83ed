package vulkan

import (
	"fmt"
	"path/filepath"
	"runtime"

	vk "github.com/vulkan-go/vulkan"

	"github.com/mxplusb/epsilon/src/render"
)

// NewError converts a Vulkan result code into an error annotated with the
// calling function. Success yields nil.
func NewError(retVal vk.Result) error {
	if retVal == vk.Success {
		return nil
	}
	err := vk.Error(retVal)
	if err == nil {
		err = fmt.Errorf("result %d", retVal)
	}
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return fmt.Errorf("vulkan error: %w (%d)", err, retVal)
	}
	frame := newStackFrame(pc)
	return fmt.Errorf("vulkan error: %w (%d) on %s", err, retVal, frame.String())
}

// IsError reports whether retVal is anything but success.
func IsError(retVal vk.Result) bool {
	return retVal != vk.Success
}

// OrPanic runs the finalizers and panics when err is set.
func OrPanic(err error, finalizers ...func()) {
	if err == nil {
		return
	}
	for _, fn := range finalizers {
		fn()
	}
	panic(err)
}

// CheckError turns a panic into *err. Use it deferred.
func CheckError(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = e
			return
		}
		*err = fmt.Errorf("%+v", v)
	}
}

type stackFrame struct {
	fn   string
	file string
	line int
}

func newStackFrame(pc uintptr) stackFrame {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return stackFrame{fn: "unknown"}
	}
	file, line := fn.FileLine(pc)
	return stackFrame{fn: fn.Name(), file: file, line: line}
}

func (f stackFrame) String() string {
	if f.file == "" {
		return f.fn
	}
	return fmt.Sprintf("%s (%s:%d)", f.fn, filepath.Base(f.file), f.line)
}

// result classifies the outcome of an acquire or present.
func result(ret vk.Result) render.Result {
	switch ret {
	case vk.Success:
		return render.OK()
	case vk.Suboptimal:
		return render.Suboptimal()
	case vk.ErrorOutOfDate:
		return render.OutOfDate()
	}
	return render.Failed(NewError(ret))
}
