package storage

import "testing"

func TestValidateEvidenceType(t *testing.T) {
	t.Parallel()
	for _, ct := range []string{"application/json", "image/jpeg", "image/png", "video/mp4", "IMAGE/PNG"} {
		if !ValidateEvidenceType(ct) {
			t.Errorf("ValidateEvidenceType(%q) = false", ct)
		}
	}
	for _, ct := range []string{"", "text/html", "application/pdf"} {
		if ValidateEvidenceType(ct) {
			t.Errorf("ValidateEvidenceType(%q) = true", ct)
		}
	}
}

func TestEvidenceKey(t *testing.T) {
	t.Parallel()
	got := EvidenceKey("company-1", "check-2", "application/json")
	want := "evidence/company-1/check-2.json"
	if got != want {
		t.Errorf("EvidenceKey = %q, want %q", got, want)
	}
}

func TestPhotoKey(t *testing.T) {
	t.Parallel()
	got := PhotoKey("worker-1", "Portrait.JPG")
	want := "photos/worker-1.jpg"
	if got != want {
		t.Errorf("PhotoKey = %q, want %q", got, want)
	}
}
