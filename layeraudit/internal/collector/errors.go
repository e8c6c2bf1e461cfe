package collector

import "errors"

// Fatal capture errors. Collect wraps the protocol error with one of these
// so callers can tell the failing stage apart with errors.Is.
var (
	ErrEnable             = errors.New("collector: enable layer tree")
	ErrTreeTimeout        = errors.New("collector: layer tree did not change before deadline")
	ErrTreeClosed         = errors.New("collector: layer tree listener closed")
	ErrCompositingReasons = errors.New("collector: compositing reasons")
	ErrNodeIDs            = errors.New("collector: push backend node ids")
)
