package workers

import (
	"github.com/sitesafe/backend/internal/models"
)

// ComputeStatus derives a worker's status from its memberships: active iff at
// least one live (pending or approved, not ended) membership remains,
// independent otherwise. Never an unconditional reset — a worker unlinked
// from one company stays active while approved elsewhere.
func ComputeStatus(memberships []models.Membership) models.WorkerStatus {
	for i := range memberships {
		if memberships[i].Live() {
			return models.WorkerActive
		}
	}
	return models.WorkerIndependent
}
