package errs

import (
	"github.com/pkg/errors"
)

const (
	CodeAgain           = 1001
	CodeConnClosed      = 1002
	CodeArenaExhausted  = 1101
	CodeArenaDestroyed  = 1102
	CodeSessionClosed   = 1201
	CodeOutQueueFull    = 1202
	CodeHandshake       = 2001
	CodeProtocol        = 2002
	CodeChunkSize       = 2003
	CodeNotSupported    = 3001
	CodeConfig          = 3002
	CodeConnectRejected = 3003
	CodeReactor         = 3004
	CodeUnknown         = 9999
)

var (
	ErrAgain           = New(CodeAgain, "resource temporarily unavailable")
	ErrConnClosed      = New(CodeConnClosed, "use of closed connection")
	ErrArenaExhausted  = New(CodeArenaExhausted, "arena exhausted")
	ErrArenaDestroyed  = New(CodeArenaDestroyed, "arena destroyed")
	ErrSessionClosed   = New(CodeSessionClosed, "session closed")
	ErrOutQueueFull    = New(CodeOutQueueFull, "output queue full")
	ErrNotSupported    = New(CodeNotSupported, "not supported on this platform")
	ErrChunkSize       = New(CodeChunkSize, "chunk size out of range")
	ErrConnectRejected = New(CodeConnectRejected, "connect rejected")
)

const (
	Success = "success"
)

type Error struct {
	Code int32
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func New(code int32, msg string) error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Newf builds a coded error with a formatted message.
func Newf(code int32, format string, args ...interface{}) error {
	return &Error{
		Code: code,
		Msg:  errors.Errorf(format, args...).Error(),
	}
}

// Code returns the code of the innermost *Error in the chain.
func Code(e error) int32 {
	if e == nil {
		return 0
	}
	var err *Error
	if !errors.As(e, &err) {
		return CodeUnknown
	}

	if err == (*Error)(nil) {
		return 0
	}
	return err.Code
}

func Msg(e error) string {
	if e == nil {
		return Success
	}
	var err *Error
	if !errors.As(e, &err) {
		return "unknown error: " + e.Error()
	}

	if err == (*Error)(nil) {
		return Success
	}

	return err.Msg
}

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
