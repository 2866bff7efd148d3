package submission

import (
	"time"

	"github.com/google/uuid"

	"kycflow/pkg/domain"
)

// SeedDemoData preloads the ledger with a few historical records so the review
// dashboard has content before any live verification runs. Demo-only; real
// deployments start empty.
func SeedDemoData(s *Store) {
	now := time.Now()
	rows := []*domain.Submission{
		{
			ID:           uuid.New(),
			FullName:     "Alice Johnson",
			Email:        "alice@example.com",
			SubmittedAt:  now.Add(-72 * time.Hour),
			DocumentType: domain.DocumentTypePassport,
			Status:       domain.KYCStatusApproved,
			RiskScore:    12,
		},
		{
			ID:           uuid.New(),
			FullName:     "Bob Smith",
			Email:        "bob@example.com",
			SubmittedAt:  now.Add(-48 * time.Hour),
			DocumentType: domain.DocumentTypeNationalID,
			Status:       domain.KYCStatusManualReview,
			RiskScore:    45,
		},
		{
			ID:           uuid.New(),
			FullName:     "Charlie Davis",
			Email:        "charlie@fake.com",
			SubmittedAt:  now.Add(-24 * time.Hour),
			DocumentType: domain.DocumentTypeDriversLicense,
			Status:       domain.KYCStatusRejected,
			RiskScore:    88,
		},
	}

	// Oldest first so the newest ends up at the head of the ledger.
	for _, row := range rows {
		s.Append(row)
	}
}
