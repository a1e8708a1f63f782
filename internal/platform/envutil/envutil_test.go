package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("LEX_TEST_INT", "abc")
	if got := Int("LEX_TEST_INT", 7); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	t.Setenv("LEX_TEST_INT", " 42 ")
	if got := Int("LEX_TEST_INT", 7); got != 42 {
		t.Fatalf("Int: want=42 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("LEX_TEST_BOOL", "off")
	if Bool("LEX_TEST_BOOL", true) {
		t.Fatalf("Bool: want=false")
	}
	t.Setenv("LEX_TEST_BOOL", "maybe")
	if !Bool("LEX_TEST_BOOL", true) {
		t.Fatalf("Bool: want default true")
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("LEX_TEST_SECONDS", "-3")
	if got := Seconds("LEX_TEST_SECONDS", 5*time.Second); got != 5*time.Second {
		t.Fatalf("Seconds: want=5s got=%s", got)
	}
	t.Setenv("LEX_TEST_SECONDS", "30")
	if got := Seconds("LEX_TEST_SECONDS", 5*time.Second); got != 30*time.Second {
		t.Fatalf("Seconds: want=30s got=%s", got)
	}
}
