package db

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("EngineError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// NewErrorf creates a new Error with the given code and a formatted message.
func NewErrorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// CodeOf extracts the RetCode from an error. A nil error maps to
// RetCSuccess; errors that are not (wrapping) *Error map to
// RetCInternalError.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the engine.
	RetCDuplicateTransaction                // 3: Begin with an ID that is already active.
	RetCNoSuchTransaction                   // 4: Transactional operation with an unknown or invalidated ID.
	RetCZombieKey                           // 5: Set on a key whose cell is tombstoned pending removal.
	RetCConflictAborted                     // 6: Commit detected a staged key whose state no longer matches its snapshot.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCDuplicateTransaction:
		return "DuplicateTransaction"
	case RetCNoSuchTransaction:
		return "NoSuchTransaction"
	case RetCZombieKey:
		return "ZombieKey"
	case RetCConflictAborted:
		return "ConflictAborted"
	default:
		return "Unknown"
	}
}
