// ==============================================================================
// INTAKE STATE MACHINE - internal/intake/session.go
// ==============================================================================
// Drives the step-by-step data-collection flow: personal details, document
// upload, then liveness capture. A session becomes terminal once it hands out
// its bundle; a new verification constructs a fresh session.
// ==============================================================================

package intake

import (
	"strings"

	"kycflow/pkg/domain"
	kycerrors "kycflow/pkg/errors"
)

// Step identifies the current intake stage.
type Step int

const (
	StepDetails Step = iota + 1
	StepDocument
	StepSelfie
	StepReady
)

func (s Step) String() string {
	switch s {
	case StepDetails:
		return "collecting_details"
	case StepDocument:
		return "collecting_document"
	case StepSelfie:
		return "collecting_biometric"
	case StepReady:
		return "ready"
	}
	return "unknown"
}

// Capture is the narrow capability the intake flow needs from whatever produces
// media: a file picker, a camera API, or a test fixture.
type Capture interface {
	Capture() (domain.EncodedMedia, error)
}

// CaptureFunc adapts a plain function to the Capture interface.
type CaptureFunc func() (domain.EncodedMedia, error)

func (f CaptureFunc) Capture() (domain.EncodedMedia, error) { return f() }

// Bundle is the immutable output of a completed intake session.
type Bundle struct {
	Applicant domain.ApplicantInput
	Document  domain.EncodedMedia
	Selfie    domain.EncodedMedia
}

// Session is the intake state machine. Transitions are strictly
// forward/backward; back-navigation keeps previously entered data.
type Session struct {
	step      Step
	applicant domain.ApplicantInput
	document  domain.EncodedMedia
	selfie    domain.EncodedMedia
	emitted   bool
}

func NewSession() *Session {
	return &Session{step: StepDetails}
}

// Step returns the current intake stage.
func (s *Session) Step() Step { return s.step }

// SetDetails records the applicant's personal details. Allowed at any stage
// before the session turns terminal, so edits survive back-navigation.
func (s *Session) SetDetails(input domain.ApplicantInput) error {
	if s.emitted {
		return kycerrors.ErrSessionComplete
	}
	s.applicant = input
	return nil
}

// AttachDocument stores the captured identity document. A second capture
// replaces the first wholesale.
func (s *Session) AttachDocument(doc domain.EncodedMedia) error {
	if s.emitted {
		return kycerrors.ErrSessionComplete
	}
	if s.step < StepDocument {
		return kycerrors.ErrInvalidStepMove
	}
	s.document = doc
	return nil
}

// AttachSelfie stores the captured liveness selfie.
func (s *Session) AttachSelfie(selfie domain.EncodedMedia) error {
	if s.emitted {
		return kycerrors.ErrSessionComplete
	}
	if s.step < StepSelfie {
		return kycerrors.ErrInvalidStepMove
	}
	s.selfie = selfie
	return nil
}

// CaptureDocument pulls a document payload from the given capture capability.
func (s *Session) CaptureDocument(c Capture) error {
	m, err := c.Capture()
	if err != nil {
		return err
	}
	return s.AttachDocument(m)
}

// CaptureSelfie pulls a selfie payload from the given capture capability.
func (s *Session) CaptureSelfie(c Capture) error {
	m, err := c.Capture()
	if err != nil {
		return err
	}
	return s.AttachSelfie(m)
}

// Next advances to the following stage, enforcing the per-stage guards.
func (s *Session) Next() error {
	if s.emitted {
		return kycerrors.ErrSessionComplete
	}
	switch s.step {
	case StepDetails:
		if strings.TrimSpace(s.applicant.FullName) == "" || strings.TrimSpace(s.applicant.Email) == "" {
			return kycerrors.ErrIncompleteDetails
		}
		s.step = StepDocument
	case StepDocument:
		if s.document == "" {
			return kycerrors.ErrDocumentRequired
		}
		s.step = StepSelfie
	case StepSelfie:
		if s.selfie == "" {
			return kycerrors.ErrSelfieRequired
		}
		s.step = StepReady
	case StepReady:
		return kycerrors.ErrInvalidStepMove
	}
	return nil
}

// Back returns to the prior stage without discarding anything already entered.
func (s *Session) Back() error {
	if s.emitted {
		return kycerrors.ErrSessionComplete
	}
	if s.step <= StepDetails {
		return kycerrors.ErrInvalidStepMove
	}
	s.step--
	return nil
}

// Ready reports whether the session holds a complete, submittable payload.
func (s *Session) Ready() bool {
	return s.step == StepReady && !s.emitted
}

// Bundle emits the finished intake payload exactly once and makes the session
// terminal for this verification attempt.
func (s *Session) Bundle() (*Bundle, error) {
	if s.emitted {
		return nil, kycerrors.ErrSessionComplete
	}
	if s.step != StepReady {
		return nil, kycerrors.ErrSessionNotReady
	}
	s.emitted = true
	return &Bundle{
		Applicant: s.applicant,
		Document:  s.document,
		Selfie:    s.selfie,
	}, nil
}
