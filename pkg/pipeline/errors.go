package pipeline

import "fmt"

// CaptureError means the capture stage produced fewer usable frames
// than the run requires. The classifier is never invoked after one.
type CaptureError struct {
	Want int
	Got  int
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline: capture failed: %v", e.Err)
	}
	return fmt.Sprintf("pipeline: captured %d of %d frames", e.Got, e.Want)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ClassificationError means a frame failed inference. One bad frame
// fails the whole run: the voter's tie-break semantics assume a full
// batch of N ballots.
type ClassificationError struct {
	Ordinal int
	Path    string
	Err     error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("pipeline: classify frame %d (%s): %v", e.Ordinal, e.Path, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }
