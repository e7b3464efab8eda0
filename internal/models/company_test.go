package models

import "testing"

func TestNormalizeRegNumber(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in, want string
	}{
		{"123-456", "123456"},
		{"123456", "123456"},
		{" 12 34/56 ", "123456"},
		{"CHE-123.456.789", "123456789"},
		{"no digits", ""},
	}
	for _, tc := range cases {
		if got := NormalizeRegNumber(tc.in); got != tc.want {
			t.Errorf("NormalizeRegNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	t.Parallel()
	for _, r := range []string{"admin", "manager", "subcontractor", "worker"} {
		if !ValidRole(r) {
			t.Errorf("ValidRole(%q) = false", r)
		}
	}
	for _, r := range []string{"", "superadmin", "Admin"} {
		if ValidRole(r) {
			t.Errorf("ValidRole(%q) = true", r)
		}
	}
}
