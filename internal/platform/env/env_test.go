package env

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	if got := String("INDEXER_ENV_STRING_DOES_NOT_EXIST", "fallback"); got != "fallback" {
		t.Fatalf("String()=%q, want fallback", got)
	}

	t.Setenv("INDEXER_ENV_STRING", " value ")
	if got := String("INDEXER_ENV_STRING", "fallback"); got != "value" {
		t.Fatalf("String()=%q, want value", got)
	}

	t.Setenv("INDEXER_ENV_STRING_BLANK", "   ")
	if got := String("INDEXER_ENV_STRING_BLANK", "fallback"); got != "fallback" {
		t.Fatalf("String()=%q, want fallback for blank value", got)
	}
}

func TestDuration(t *testing.T) {
	got, err := Duration("INDEXER_ENV_DURATION_DOES_NOT_EXIST", 5*time.Second)
	if err != nil || got != 5*time.Second {
		t.Fatalf("Duration()=%v err=%v, want 5s", got, err)
	}

	t.Setenv("INDEXER_ENV_DURATION", "250ms")
	got, err = Duration("INDEXER_ENV_DURATION", 5*time.Second)
	if err != nil || got != 250*time.Millisecond {
		t.Fatalf("Duration()=%v err=%v, want 250ms", got, err)
	}

	t.Setenv("INDEXER_ENV_DURATION_INVALID", "not-a-duration")
	if _, err := Duration("INDEXER_ENV_DURATION_INVALID", 5*time.Second); err == nil {
		t.Fatalf("Duration() expected error")
	}
}

func TestBool(t *testing.T) {
	got, err := Bool("INDEXER_ENV_BOOL_DOES_NOT_EXIST", true)
	if err != nil || got != true {
		t.Fatalf("Bool()=%v err=%v, want true", got, err)
	}

	t.Setenv("INDEXER_ENV_BOOL", "false")
	got, err = Bool("INDEXER_ENV_BOOL", true)
	if err != nil || got != false {
		t.Fatalf("Bool()=%v err=%v, want false", got, err)
	}

	t.Setenv("INDEXER_ENV_BOOL_INVALID", "nope")
	if _, err := Bool("INDEXER_ENV_BOOL_INVALID", false); err == nil {
		t.Fatalf("Bool() expected error")
	}
}

func TestInt(t *testing.T) {
	got, err := Int("INDEXER_ENV_INT_DOES_NOT_EXIST", 42)
	if err != nil || got != 42 {
		t.Fatalf("Int()=%v err=%v, want 42", got, err)
	}

	t.Setenv("INDEXER_ENV_INT", "7")
	got, err = Int("INDEXER_ENV_INT", 42)
	if err != nil || got != 7 {
		t.Fatalf("Int()=%v err=%v, want 7", got, err)
	}

	t.Setenv("INDEXER_ENV_INT_INVALID", "nope")
	if _, err := Int("INDEXER_ENV_INT_INVALID", 42); err == nil {
		t.Fatalf("Int() expected error")
	}
}

func TestURL(t *testing.T) {
	got, err := URL("INDEXER_ENV_URL_DOES_NOT_EXIST", "")
	if err != nil || got != "" {
		t.Fatalf("URL()=%q err=%v, want empty", got, err)
	}

	t.Setenv("INDEXER_ENV_URL", "http://catalog.internal:8082/")
	got, err = URL("INDEXER_ENV_URL", "")
	if err != nil || got != "http://catalog.internal:8082" {
		t.Fatalf("URL()=%q err=%v", got, err)
	}

	t.Setenv("INDEXER_ENV_URL_BAD_SCHEME", "ftp://catalog.internal")
	if _, err := URL("INDEXER_ENV_URL_BAD_SCHEME", ""); err == nil {
		t.Fatalf("URL() expected error for ftp scheme")
	}
}
