package apierr

import (
	"errors"
	"net/http"
	"strconv"

	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
)

// Error carries the HTTP status and machine code a failure should surface as.
type Error struct {
	Status int
	Code   string
	Err    error
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	}
	return "api error " + strconv.Itoa(e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

var sentinels = []struct {
	target error
	status int
	code   string
}{
	{pkgerrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{pkgerrors.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{pkgerrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{pkgerrors.ErrConflict, http.StatusConflict, "conflict"},
}

// From maps err onto an *Error. An *Error already in the chain wins; anything
// unrecognized is a 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	for _, s := range sentinels {
		if errors.Is(err, s.target) {
			return New(s.status, s.code, err)
		}
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}
