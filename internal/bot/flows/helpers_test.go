package flows

import (
	"testing"
	"time"
)

func TestParseValueComment(t *testing.T) {
	t.Run("value_with_comment", func(t *testing.T) {
		v, c, err := parseValueComment("50 отличная работа")
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if v != 50 || c != "отличная работа" {
			t.Fatalf("v=%d c=%q", v, c)
		}
	})

	t.Run("value_only", func(t *testing.T) {
		v, c, err := parseValueComment("  30  ")
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if v != 30 || c != "" {
			t.Fatalf("v=%d c=%q", v, c)
		}
	})

	t.Run("negative_value", func(t *testing.T) {
		v, _, err := parseValueComment("-5 штраф")
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if v != -5 {
			t.Fatalf("v=%d", v)
		}
	})

	t.Run("no_number", func(t *testing.T) {
		if _, _, err := parseValueComment("отличная работа"); err == nil {
			t.Fatal("ожидали ошибку для ввода без числа")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, _, err := parseValueComment("   "); err == nil {
			t.Fatal("ожидали ошибку для пустого ввода")
		}
	})
}

func TestParseDeadline(t *testing.T) {
	got, err := parseDeadline(" 15-09-2026 ")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	want := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("получили %v", got)
	}

	for _, bad := range []string{"2026-09-15", "15/09/2026", "31-02-2026", "скоро"} {
		if _, err := parseDeadline(bad); err == nil {
			t.Fatalf("%q должен отклоняться", bad)
		}
	}
}
