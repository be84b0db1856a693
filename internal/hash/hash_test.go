package hash

import (
	"errors"
	"strings"
	"testing"
)

func TestContentIsStable(t *testing.T) {
	a := Content("role", "rust", "working code", "writes code")
	b := Content("role", "rust", "working code", "writes code")
	if a != b {
		t.Fatalf("same inputs produced different hashes: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64", len(a))
	}
	if a != strings.ToLower(a) {
		t.Fatalf("hash contains uppercase: %s", a)
	}
}

func TestContentDistinguishesFieldBoundaries(t *testing.T) {
	// "ab"+"c" must not hash the same as "a"+"bc".
	a := Content("role", "ab", "c")
	b := Content("role", "a", "bc")
	if a == b {
		t.Fatal("field boundary collision")
	}
}

func TestContentDistinguishesEntityType(t *testing.T) {
	a := Content("role", "x")
	b := Content("objective", "x")
	if a == b {
		t.Fatal("entity type not part of hash")
	}
}

func TestShort(t *testing.T) {
	full := Content("role", "x")
	if got := Short(full); got != full[:8] {
		t.Fatalf("Short(%s) = %s", full, got)
	}
	if got := Short("abc"); got != "abc" {
		t.Fatalf("Short of short id = %s, want abc", got)
	}
}

func TestMatchPrefix(t *testing.T) {
	ids := []string{
		"aaaa1111bbbb",
		"aaaa2222bbbb",
		"cccc3333dddd",
	}

	got, err := MatchPrefix(ids, "cccc3333")
	if err != nil {
		t.Fatalf("unique prefix: %v", err)
	}
	if got != "cccc3333dddd" {
		t.Fatalf("got %s", got)
	}

	if _, err := MatchPrefix(ids, "aaaa1111bbbb"); err != nil {
		t.Fatalf("full id should match itself: %v", err)
	}

	_, err = MatchPrefix(ids, "eeee0000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	_, err = MatchPrefix(ids, "aaaa1111b")
	if err != nil {
		t.Fatalf("longer unique prefix: %v", err)
	}

	_, err = MatchPrefix([]string{"aaaa1111bbbb", "aaaa1111cccc"}, "aaaa1111")
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("want ErrAmbiguous, got %v", err)
	}
}

func TestMatchPrefixTooShort(t *testing.T) {
	if _, err := MatchPrefix([]string{"aaaa1111bbbb"}, "aaaa"); err == nil {
		t.Fatal("expected error for short prefix")
	}
}
