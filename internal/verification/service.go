// ==============================================================================
// VERIFICATION ORCHESTRATOR - internal/verification/service.go
// ==============================================================================
// Ties the pipeline together: takes a finished intake bundle, runs the engine
// exchange off the request path, paces the progress machine, and on completion
// feeds the result through the decision engine into the submission ledger.
// ==============================================================================

package verification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"kycflow/internal/decision"
	"kycflow/internal/intake"
	"kycflow/internal/progress"
	"kycflow/internal/submission"
	"kycflow/pkg/config"
	"kycflow/pkg/domain"
	kycerrors "kycflow/pkg/errors"
	"kycflow/pkg/logger"
)

// Analyzer is the slice of the engine client the orchestrator needs.
type Analyzer interface {
	Submit(ctx context.Context, document, selfie domain.EncodedMedia) *domain.VerificationResult
}

// SessionState describes where a verification session is in its lifecycle.
type SessionState string

const (
	SessionProcessing SessionState = "processing"
	SessionCompleted  SessionState = "completed"
	SessionAbandoned  SessionState = "abandoned"
)

// session is the transient per-attempt state. It owns its progress runner and
// is discarded from the caller's point of view once terminal.
type session struct {
	id           uuid.UUID
	state        SessionState
	bundle       *intake.Bundle
	runner       *progress.Runner
	result       *domain.VerificationResult
	submissionID *uuid.UUID
	cancel       context.CancelFunc
	subscribers  map[chan domain.SessionStateResponse]struct{}
}

// Service coordinates verification sessions. The submission store is mutated
// only here, so appends stay serialized no matter how many sessions run.
type Service struct {
	analyzer Analyzer
	store    *submission.Store
	cfg      config.ProgressConfig
	logger   logger.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

func NewService(analyzer Analyzer, store *submission.Store, cfg config.ProgressConfig, log logger.Logger) *Service {
	return &Service{
		analyzer: analyzer,
		store:    store,
		cfg:      cfg,
		logger:   log,
		sessions: make(map[uuid.UUID]*session),
	}
}

// Start launches the asynchronous pipeline for a completed intake bundle and
// returns the session identifier immediately; the caller stays responsive
// while the engine works.
func (s *Service) Start(bundle *intake.Bundle) uuid.UUID {
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	sess := &session{
		id:          id,
		state:       SessionProcessing,
		bundle:      bundle,
		cancel:      cancel,
		subscribers: make(map[chan domain.SessionStateResponse]struct{}),
	}
	sess.runner = progress.NewRunner(
		s.cfg.TickInterval,
		s.cfg.SettleDelay,
		func(steps []domain.ProcessingStep) { s.publish(id) },
		func() { s.finalize(id) },
	)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Info("Verification session started", logger.Fields{
		"event":         "verification_started",
		"session_id":    id.String(),
		"document_type": string(bundle.Applicant.DocumentType),
	})

	go sess.runner.Run(ctx)
	go s.analyze(ctx, id)

	return id
}

// analyze performs the single engine exchange and hands the result to the
// session, unless the session was abandoned while the call was in flight.
func (s *Service) analyze(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	document, selfie := sess.bundle.Document, sess.bundle.Selfie
	s.mu.Unlock()

	result := s.analyzer.Submit(ctx, document, selfie)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok = s.sessions[id]
	if !ok || sess.state != SessionProcessing {
		// The hosting session is gone; acting on the result would mutate
		// shared state on behalf of a discarded attempt.
		s.logger.Warn("Discarding verification result for stale session", logger.Fields{
			"event":      "verification_result_discarded",
			"session_id": id.String(),
		})
		return
	}
	sess.result = result
	sess.runner.ResultArrived()
}

// finalize runs once the progress machine signals completion: decide, record,
// notify. Invoked from the runner's timer goroutine.
func (s *Service) finalize(id uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || sess.state != SessionProcessing || sess.result == nil {
		s.mu.Unlock()
		return
	}

	status := decision.Decide(sess.result)
	sub := &domain.Submission{
		ID:            uuid.New(),
		FullName:      sess.bundle.Applicant.FullName,
		Email:         sess.bundle.Applicant.Email,
		SubmittedAt:   time.Now().UTC(),
		DocumentType:  sess.bundle.Applicant.DocumentType,
		Status:        status,
		RiskScore:     sess.result.RiskScore,
		Result:        sess.result,
		DocumentImage: sess.bundle.Document,
		SelfieImage:   sess.bundle.Selfie,
	}
	sess.state = SessionCompleted
	sess.submissionID = &sub.ID
	s.mu.Unlock()

	s.store.Append(sub)
	s.logger.Info("Verification session completed", logger.Fields{
		"event":         "verification_completed",
		"session_id":    id.String(),
		"submission_id": sub.ID.String(),
		"status":        string(status),
		"risk_score":    sub.RiskScore,
	})
	s.publish(id)
	s.closeSubscribers(id)
}

// Abandon tears a session down before completion. The progress timer is
// released and any in-flight engine result will be discarded on arrival.
func (s *Service) Abandon(id uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return kycerrors.ErrSessionNotFound
	}
	if sess.state != SessionProcessing {
		s.mu.Unlock()
		return kycerrors.ErrSessionAbandoned
	}
	sess.state = SessionAbandoned
	sess.runner.Stop()
	sess.cancel()
	s.mu.Unlock()

	s.logger.Info("Verification session abandoned", logger.Fields{
		"event":      "verification_abandoned",
		"session_id": id.String(),
	})
	s.publish(id)
	s.closeSubscribers(id)
	return nil
}

// State returns a read model of the session for polling clients.
func (s *Service) State(id uuid.UUID) (domain.SessionStateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.SessionStateResponse{}, kycerrors.ErrSessionNotFound
	}
	return s.snapshotLocked(sess), nil
}

// Subscribe streams session snapshots until the session turns terminal. The
// returned cancel function must be called when the consumer goes away.
func (s *Service) Subscribe(id uuid.UUID) (<-chan domain.SessionStateResponse, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil, kycerrors.ErrSessionNotFound
	}

	ch := make(chan domain.SessionStateResponse, 16)
	// Prime the stream so late subscribers see the current state immediately.
	ch <- s.snapshotLocked(sess)
	if sess.state != SessionProcessing {
		// Terminal session: deliver the final snapshot and end the stream,
		// since no further publishes will ever close the channel.
		close(ch)
		return ch, func() {}, nil
	}
	sess.subscribers[ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.sessions[id]; ok {
			delete(cur.subscribers, ch)
		}
	}
	return ch, cancel, nil
}

func (s *Service) publish(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	snapshot := s.snapshotLocked(sess)
	for ch := range sess.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Slow consumer; drop the frame rather than stall the pipeline.
		}
	}
}

func (s *Service) closeSubscribers(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	for ch := range sess.subscribers {
		close(ch)
		delete(sess.subscribers, ch)
	}
}

func (s *Service) snapshotLocked(sess *session) domain.SessionStateResponse {
	return domain.SessionStateResponse{
		SessionID:    sess.id,
		State:        string(sess.state),
		Steps:        sess.runner.Snapshot(),
		SubmissionID: sess.submissionID,
	}
}
