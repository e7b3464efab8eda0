package utils

import (
	"bytes"
	"testing"
)

func TestNormalizeNationalID(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in, want string
	}{
		{"ab-123 456", "AB123456"},
		{"AB123456", "AB123456"},
		{" ab\t123-456\n", "AB123456"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeNationalID(tc.in); got != tc.want {
			t.Errorf("NormalizeNationalID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHashNationalIDCollapsesFormattingVariants(t *testing.T) {
	t.Parallel()
	a := HashNationalID("ab-123 456")
	b := HashNationalID("AB123456")
	if !bytes.Equal(a, b) {
		t.Error("formatting variants of the same ID must hash identically")
	}
	if bytes.Equal(a, HashNationalID("AB123457")) {
		t.Error("different IDs must not collide")
	}
	if len(a) != 32 {
		t.Errorf("digest length = %d, want 32", len(a))
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword("s3cret-pass", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("wrong-pass", hash) {
		t.Error("wrong password accepted")
	}
}
