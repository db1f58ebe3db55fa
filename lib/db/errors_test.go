package db

import (
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	if CodeOf(nil) != RetCSuccess {
		t.Errorf("Expected nil to map to RetCSuccess")
	}

	err := NewError(RetCConflictAborted, "conflict")
	if CodeOf(err) != RetCConflictAborted {
		t.Errorf("Expected RetCConflictAborted, got %v", CodeOf(err))
	}

	wrapped := fmt.Errorf("commit failed: %w", NewError(RetCNoSuchTransaction, "gone"))
	if CodeOf(wrapped) != RetCNoSuchTransaction {
		t.Errorf("Expected wrapped error to classify, got %v", CodeOf(wrapped))
	}

	if CodeOf(fmt.Errorf("plain")) != RetCInternalError {
		t.Errorf("Expected foreign errors to map to RetCInternalError")
	}
}

func TestErrorFormatting(t *testing.T) {
	err := NewErrorf(RetCZombieKey, "set failed on key %q", "k")

	msg := err.Error()
	if msg != `EngineError (code ZombieKey): set failed on key "k"` {
		t.Errorf("Unexpected error string: %s", msg)
	}
}

func TestRetCodeStrings(t *testing.T) {
	cases := map[RetCode]string{
		RetCSuccess:              "Success",
		RetCInternalError:        "InternalError",
		RetCUnsupportedOperation: "UnsupportedOperation",
		RetCDuplicateTransaction: "DuplicateTransaction",
		RetCNoSuchTransaction:    "NoSuchTransaction",
		RetCZombieKey:            "ZombieKey",
		RetCConflictAborted:      "ConflictAborted",
		RetCode(999):             "Unknown",
	}
	for code, want := range cases {
		if code.String() != want {
			t.Errorf("Expected %v, got %s", want, code.String())
		}
	}
}
