package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "abc")
	if got := Int("ENVUTIL_INT", 7); got != 7 {
		t.Fatalf("Int: got %d want 7", got)
	}
	t.Setenv("ENVUTIL_INT", " 12 ")
	if got := Int("ENVUTIL_INT", 7); got != 12 {
		t.Fatalf("Int: got %d want 12", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("ENVUTIL_BOOL", "off")
	if Bool("ENVUTIL_BOOL", true) {
		t.Fatalf("Bool: expected false")
	}
	t.Setenv("ENVUTIL_BOOL", "maybe")
	if !Bool("ENVUTIL_BOOL", true) {
		t.Fatalf("Bool: expected default")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("ENVUTIL_DUR", "250")
	if got := Duration("ENVUTIL_DUR", time.Second, time.Millisecond); got != 250*time.Millisecond {
		t.Fatalf("Duration: got %v", got)
	}
	t.Setenv("ENVUTIL_DUR", "2m")
	if got := Duration("ENVUTIL_DUR", time.Second, time.Millisecond); got != 2*time.Minute {
		t.Fatalf("Duration: got %v", got)
	}
}
