package syserror

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndIs(t *testing.T) {
	base := errors.New("stack top was a CurDir")
	wrapped := Wrap(base)
	if !Is(wrapped) {
		t.Fatalf("expected wrapped error to be a system error")
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("expected wrapped error to unwrap to its cause")
	}
	if Wrap(wrapped) != wrapped {
		t.Fatalf("expected Wrap to leave system errors unchanged")
	}
	if Wrap(nil) != nil {
		t.Fatalf("expected Wrap(nil) to be nil")
	}
	if Is(base) {
		t.Fatalf("expected plain error not to be a system error")
	}
	if !Is(fmt.Errorf("context: %w", Newf("bad %d", 1))) {
		t.Fatalf("expected Is to see through wrapping")
	}
	if got := New("boom").Error(); got != "system error: boom" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestRecover(t *testing.T) {
	run := func(v any) (err error) {
		defer Recover(&err)
		if v != nil {
			panic(v)
		}
		return nil
	}

	if err := run(nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := run(New("broken")); !Is(err) {
		t.Fatalf("expected recovered system error, got %v", err)
	}

	defer func() {
		if r := recover(); r != "not ours" {
			t.Fatalf("expected foreign panic to be re-raised, got %v", r)
		}
	}()
	_ = run("not ours")
}
