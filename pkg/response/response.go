package response

import (
	"errors"
)

// Error is an error that knows the HTTP status it should be reported with.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same status and message, so sentinel
// errors compare equal even when wrapped with extra context.
func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}

// StatusOf returns the status code and bare message of the first *Error in
// err's chain.
func StatusOf(err error) (int, string, bool) {
	var respErr *Error
	if !errors.As(err, &respErr) {
		return 0, "", false
	}
	return respErr.Code, respErr.Err.Error(), true
}
