// ==============================================================================
// DECISION ENGINE - internal/decision/engine.go
// ==============================================================================
package decision

import "kycflow/pkg/domain"

// Threshold rules for the disposition policy. Comparisons are strict: a risk
// score of exactly 75 survives rule one, a face match of exactly 80 falls
// through to manual review.
const (
	rejectRiskThreshold   = 75.0
	approveRiskThreshold  = 30.0
	approveFaceMatchFloor = 80.0
)

// Decide maps a verification result to its final disposition. This is pure
// domain logic: no I/O, no hidden state, identical input always yields
// identical output.
//
// Rule order matters: fraud and invalidity signals dominate a merely low face
// match, so rejection is evaluated first.
func Decide(result *domain.VerificationResult) domain.KYCStatus {
	risk := clamp(result.RiskScore)
	faceMatch := clamp(result.FaceMatchScore)

	// Rule 1: hard reject on high risk or an invalid document.
	if risk > rejectRiskThreshold || !result.DocumentValid {
		return domain.KYCStatusRejected
	}

	// Rule 2: auto-approve only when every positive signal clears its bar.
	if risk < approveRiskThreshold && result.DocumentValid && faceMatch > approveFaceMatchFloor {
		return domain.KYCStatusApproved
	}

	// Everything in between goes to a human. The tamper flag and extracted
	// fields inform the reviewer but never move the disposition directly.
	return domain.KYCStatusManualReview
}

// clamp bounds an engine-provided score to [0,100]. The engine contract
// promises the range, but it is an external service and is not trusted here.
func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
