package herdcache

import (
	"errors"
	"fmt"
)

var (
	ErrNilProvider   = errors.New("herdcache: provider is required")
	ErrNilCodec      = errors.New("herdcache: codec is required")
	ErrEmptyName     = errors.New("herdcache: name is required")
	ErrInvalidName   = errors.New("herdcache: name must not contain ':' or glob characters")
	ErrNilFetcher    = errors.New("herdcache: fetch function is required")
	ErrInvalidPolicy = errors.New("herdcache: invalid policy")
	ErrTypeMismatch  = errors.New("herdcache: in-flight result has a different value type")
	ErrFetchPanic    = errors.New("herdcache: fetch panicked")
)

// PolicyError reports the first out-of-range Policy field.
type PolicyError struct {
	Field string
	Value any
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("herdcache: invalid policy: %s=%v", e.Field, e.Value)
}

func (e *PolicyError) Unwrap() error { return ErrInvalidPolicy }

// RefreshError wraps a failed background refresh. It is logged and passed
// to Hooks.RefreshFailed, never returned from Get.
type RefreshError struct {
	Key string
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("herdcache: background refresh of %q failed: %v", e.Key, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// DeleteError is returned when the generation bump or the provider delete
// fails. In-flight bookkeeping for the key is dropped either way.
type DeleteError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *DeleteError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("delete %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("delete %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("delete %q: provider delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("delete %q: unknown error", e.Key)
	}
}

func (e *DeleteError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
