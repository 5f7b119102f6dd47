package core

import (
	"errors"
	"fmt"
)

// ConfigError reports a configuration fault (missing credentials, embedding
// dimension mismatch). Fatal: surfaced immediately, never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// ProviderError wraps a failed embedding or chat completion call with enough
// context for the logs. The wrapped provider text must never reach end users;
// user-visible messages are fixed strings chosen by the caller.
type ProviderError struct {
	Op        string
	LectureID string
	Err       error
}

func (e *ProviderError) Error() string {
	if e.LectureID == "" {
		return fmt.Sprintf("%s: provider call failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s (lecture %s): provider call failed: %v", e.Op, e.LectureID, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NotFoundError reports a missing transcript or an index that has not been
// built yet. Surfaced to the caller, never silently treated as empty.
type NotFoundError struct {
	LectureID string
	Resource  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found for lecture %s", e.Resource, e.LectureID)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
