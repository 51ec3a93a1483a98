package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrNoSelection  = fmt.Errorf("no conversation selected")
	ErrAuthRequired = fmt.Errorf("authenticated identity required")
	ErrNotConnected = fmt.Errorf("event stream is not connected")
	ErrAlreadyOpen  = fmt.Errorf("event stream is already open")
	ErrEmptyWords   = fmt.Errorf("no words have been found")
)

// FallbackMessage is shown to the user when a failed request carries
// no server-provided description.
const FallbackMessage = "Something went wrong. Please try again."

// UserFacing is implemented by errors that carry a message suitable
// for direct display to the user (typically the server error payload).
type UserFacing interface {
	UserMessage() string
}

// UserMessage extracts the displayable message from err, falling back
// to a generic one when the error chain carries none.
func UserMessage(err error) string {
	var uf UserFacing
	if stderrors.As(err, &uf) && uf.UserMessage() != "" {
		return uf.UserMessage()
	}
	return FallbackMessage
}
