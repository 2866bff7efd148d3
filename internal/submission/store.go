// ==============================================================================
// SUBMISSION STORE - internal/submission/store.go
// ==============================================================================
// Append-only in-memory ledger of finalized submissions. Stands in for real
// persistence behind an explicit component boundary, so a database-backed
// implementation can replace it without touching the decision engine.
// ==============================================================================

package submission

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kycflow/pkg/domain"
	kycerrors "kycflow/pkg/errors"
)

// Store owns all Submission records for the process lifetime. Writes come from
// a single producer (the verification orchestrator) but are serialized anyway
// so the store stays correct if more workers appear.
type Store struct {
	mu          sync.RWMutex
	submissions []*domain.Submission
}

func NewStore() *Store {
	return &Store{}
}

// Append records a finalized submission. It always succeeds; newest records
// come first on iteration.
func (s *Store) Append(sub *domain.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append([]*domain.Submission{sub}, s.submissions...)
}

// Query returns submissions newest-first, optionally filtered by exact status
// and a case-insensitive substring match on name or email.
func (s *Store) Query(status *domain.KYCStatus, search string) []*domain.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]*domain.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		if status != nil && sub.Status != *status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(sub.FullName), needle) &&
			!strings.Contains(strings.ToLower(sub.Email), needle) {
			continue
		}
		out = append(out, sub)
	}
	return out
}

// FindByID returns one submission with its embedded verification result.
func (s *Store) FindByID(id uuid.UUID) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.submissions {
		if sub.ID == id {
			return sub, nil
		}
	}
	return nil, kycerrors.ErrSubmissionNotFound
}

// Stats recomputes the dashboard aggregates from the ledger on every call.
// Nothing here is cached, so the figures can never go stale.
func (s *Store) Stats() domain.StatsResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.StatsResponse{
		StatusBreakdown: make(map[string]int),
	}
	riskSum := decimal.Zero
	for _, sub := range s.submissions {
		stats.Total++
		stats.StatusBreakdown[string(sub.Status)]++
		riskSum = riskSum.Add(decimal.NewFromFloat(sub.RiskScore))

		switch sub.Status {
		case domain.KYCStatusApproved:
			stats.Approved++
		case domain.KYCStatusManualReview:
			stats.ManualReview++
		case domain.KYCStatusRejected:
			stats.Rejected++
		}
	}

	avg := decimal.Zero
	if stats.Total > 0 {
		avg = riskSum.DivRound(decimal.NewFromInt(int64(stats.Total)), 2)
	}
	stats.AverageRiskScore = avg.StringFixed(2)
	stats.RiskDistribution = s.riskDistributionLocked()
	return stats
}

// RiskDistribution buckets submissions into low (<30), medium (30-69) and
// high (>=70) risk bands.
func (s *Store) RiskDistribution() []domain.RiskBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.riskDistributionLocked()
}

func (s *Store) riskDistributionLocked() []domain.RiskBucket {
	buckets := []domain.RiskBucket{
		{Name: "Low Risk"},
		{Name: "Medium Risk"},
		{Name: "High Risk"},
	}
	for _, sub := range s.submissions {
		switch {
		case sub.RiskScore < 30:
			buckets[0].Value++
		case sub.RiskScore < 70:
			buckets[1].Value++
		default:
			buckets[2].Value++
		}
	}
	return buckets
}
