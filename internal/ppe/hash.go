package ppe

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/google/uuid"
)

// evidenceRecord is the canonical form a check is hashed over. Field order is
// fixed by the struct so the digest is stable for identical checks.
type evidenceRecord struct {
	TaskID      uuid.UUID `json:"taskId"`
	WorkerID    uuid.UUID `json:"workerId"`
	Result      string    `json:"result"`
	JSONBlobURL string    `json:"jsonBlobUrl"`
}

// EvidenceHash computes the SHA-256 digest of a check's canonical payload.
func EvidenceHash(taskID, workerID uuid.UUID, result, jsonBlobURL string) []byte {
	raw, _ := json.Marshal(evidenceRecord{
		TaskID:      taskID,
		WorkerID:    workerID,
		Result:      result,
		JSONBlobURL: jsonBlobURL,
	})
	sum := sha256.Sum256(raw)
	return sum[:]
}
