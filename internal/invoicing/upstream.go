package invoicing

import "fmt"

// UpstreamError is a tagged failure from the back-office backend. Message
// carries the human-readable text extracted from the backend's error
// payload when one was available.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend request failed with status %d", e.Status)
}

// NotFound reports whether the backend answered 404.
func (e *UpstreamError) NotFound() bool {
	return e.Status == 404
}
