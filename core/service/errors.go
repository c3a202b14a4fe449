package service

import "fmt"

// CallError is returned for every failed call to the live service: the
// service could not be reached, timed out or answered with a non-OK status.
type CallError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: non-OK HTTP status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
