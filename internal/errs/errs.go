package errs

import "errors"

// Error kinds shared by every domain package. Domain sentinels wrap one of
// these so callers can branch on errors.Is without importing the domain.
var (
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid_state")
	ErrInvalidInput = errors.New("invalid_input")
	ErrForbidden    = errors.New("forbidden")
)

var kinds = []error{
	ErrNotFound,
	ErrConflict,
	ErrInvalidState,
	ErrInvalidInput,
	ErrForbidden,
}

type codedError struct {
	kind error
	code string
}

func (e *codedError) Error() string { return e.code }

func (e *codedError) Unwrap() error { return e.kind }

// New returns a sentinel carrying a snake_case code that unwraps to kind.
func New(kind error, code string) error {
	return &codedError{kind: kind, code: code}
}

// Kind returns the kind err belongs to, or nil when it has none.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Code returns the most specific snake_case code found in the chain.
func Code(err error) string {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	if kind := Kind(err); kind != nil {
		return kind.Error()
	}
	return ""
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsRetryable reports whether repeating the whole unit of work may succeed.
func IsRetryable(err error) bool { return IsConflict(err) }
