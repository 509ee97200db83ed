package render

import "fmt"

// Status classifies the outcome of an acquire or a submit-and-present.
type Status int

const (
	// StatusOK means the operation succeeded.
	StatusOK Status = iota
	// StatusSuboptimal means the operation succeeded but the swapchain no
	// longer matches the surface exactly and should be recreated.
	StatusSuboptimal
	// StatusOutOfDate means the swapchain can no longer be used.
	StatusOutOfDate
	// StatusFailed means the operation failed for any other reason.
	StatusFailed
)

var statusNames = [...]string{
	StatusOK:         "ok",
	StatusSuboptimal: "suboptimal",
	StatusOutOfDate:  "out of date",
	StatusFailed:     "failed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Result is the closed union {OK, Suboptimal, OutOfDate, Failed(Err)}.
// Err is only set for StatusFailed.
type Result struct {
	Status Status
	Err    error
}

func OK() Result         { return Result{Status: StatusOK} }
func Suboptimal() Result { return Result{Status: StatusSuboptimal} }
func OutOfDate() Result  { return Result{Status: StatusOutOfDate} }

// Failed wraps err as a failure result. A nil err still yields a failure.
func Failed(err error) Result {
	if err == nil {
		err = ErrUnknown
	}
	return Result{Status: StatusFailed, Err: err}
}

// Usable reports whether the operation produced something to keep using
// this frame.
func (r Result) Usable() bool {
	return r.Status == StatusOK || r.Status == StatusSuboptimal
}

// Stale reports whether the swapchain must be recreated before the next frame.
func (r Result) Stale() bool {
	return r.Status == StatusSuboptimal || r.Status == StatusOutOfDate
}

func (r Result) String() string {
	if r.Status == StatusFailed {
		return fmt.Sprintf("%s: %v", r.Status, r.Err)
	}
	return r.Status.String()
}
