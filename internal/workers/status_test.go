package workers

import (
	"testing"
	"time"

	"github.com/sitesafe/backend/internal/models"
)

func membership(status models.MembershipStatus, ended bool) models.Membership {
	m := models.Membership{Status: status}
	if ended {
		now := time.Now()
		m.EndedAt = &now
	}
	return m
}

func TestComputeStatus(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   []models.Membership
		want models.WorkerStatus
	}{
		{"no memberships", nil, models.WorkerIndependent},
		{"pending counts as live", []models.Membership{membership(models.MembershipPending, false)}, models.WorkerActive},
		{"approved counts as live", []models.Membership{membership(models.MembershipApproved, false)}, models.WorkerActive},
		{"rejected only", []models.Membership{membership(models.MembershipRejected, true)}, models.WorkerIndependent},
		{"ended approved only", []models.Membership{membership(models.MembershipApproved, true)}, models.WorkerIndependent},
		{
			"one live among rejected",
			[]models.Membership{
				membership(models.MembershipRejected, true),
				membership(models.MembershipApproved, false),
			},
			models.WorkerActive,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ComputeStatus(tc.in); got != tc.want {
				t.Errorf("ComputeStatus = %q, want %q", got, tc.want)
			}
		})
	}
}
