package groveerr

import (
	"errors"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	base := errors.New("disk full")
	wrapped := Backend("write", base)

	if !Is(wrapped, KindBackend) {
		t.Fatalf("expected KindBackend, got %v", wrapped)
	}
	if Is(wrapped, KindStorage) {
		t.Fatalf("did not expect KindStorage for %v", wrapped)
	}
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := New(KindSerde, "parse", base)

	if !errors.Is(wrapped, base) {
		t.Fatalf("expected errors.Is to find base cause")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindSchema:  "schema",
		KindBackend: "backend",
		KindConfig:  "config",
		KindStorage: "storage",
		KindSerde:   "serde",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestFailOpenLogDoesNotPanicWithNilLogger(t *testing.T) {
	FailOpenLog(nil, "search", errors.New("unavailable"))
}
