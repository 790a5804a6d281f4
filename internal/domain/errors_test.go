package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestStoreErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := WriteErr("append attempt", cause)

	if !IsWriteFailure(err) {
		t.Fatalf("expected write failure, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	if ReadErr("get student", nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}

func TestStoreErrorKeepsSentinels(t *testing.T) {
	err := ReadErr("get quiz", fmt.Errorf("load: %w", ErrQuizNotFound))
	if !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	var se *StoreError
	if errors.As(err, &se) {
		t.Fatalf("sentinel should not be classified as store error")
	}

	inner := WriteErr("update", errors.New("boom"))
	if outer := ReadErr("other", inner); outer != inner {
		t.Fatalf("expected already classified error to pass through")
	}
}
