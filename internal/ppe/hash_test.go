package ppe

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
)

func TestEvidenceHashDeterministic(t *testing.T) {
	t.Parallel()
	taskID, workerID := uuid.New(), uuid.New()

	a := EvidenceHash(taskID, workerID, "pass", "s3://bucket/blob.json")
	b := EvidenceHash(taskID, workerID, "pass", "s3://bucket/blob.json")
	if !bytes.Equal(a, b) {
		t.Error("identical payloads must produce identical digests")
	}
	if len(a) != 32 {
		t.Errorf("digest length = %d, want 32", len(a))
	}
}

func TestEvidenceHashSensitiveToEveryField(t *testing.T) {
	t.Parallel()
	taskID, workerID := uuid.New(), uuid.New()
	base := EvidenceHash(taskID, workerID, "pass", "url")

	variants := [][]byte{
		EvidenceHash(uuid.New(), workerID, "pass", "url"),
		EvidenceHash(taskID, uuid.New(), "pass", "url"),
		EvidenceHash(taskID, workerID, "fail", "url"),
		EvidenceHash(taskID, workerID, "pass", "other-url"),
	}
	for i, v := range variants {
		if bytes.Equal(base, v) {
			t.Errorf("variant %d collides with base digest", i)
		}
	}
}
