// ==============================================================================
// KYC HTTP HANDLER - internal/handler/kyc.go
// ==============================================================================
// HTTP surface for the verification pipeline and the review dashboard.
// ==============================================================================

package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"kycflow/internal/intake"
	"kycflow/internal/media"
	"kycflow/internal/verification"
	"kycflow/pkg/domain"
	kycerrors "kycflow/pkg/errors"
	"kycflow/pkg/logger"
	"kycflow/pkg/validator"
)

// SubmissionReader is the read side of the submission ledger the review
// surface needs.
type SubmissionReader interface {
	Query(status *domain.KYCStatus, search string) []*domain.Submission
	FindByID(id uuid.UUID) (*domain.Submission, error)
	Stats() domain.StatsResponse
}

// KYCHandler handles verification and review endpoints.
type KYCHandler struct {
	service   *verification.Service
	store     SubmissionReader
	media     *media.Adapter
	validator *validator.Validator
	logger    logger.Logger
}

func NewKYCHandler(
	service *verification.Service,
	store SubmissionReader,
	mediaAdapter *media.Adapter,
	val *validator.Validator,
	log logger.Logger,
) *KYCHandler {
	return &KYCHandler{
		service:   service,
		store:     store,
		media:     mediaAdapter,
		validator: val,
		logger:    log,
	}
}

// ==============================================================================
// HELPER METHODS
// ==============================================================================

// respondJSON sends a JSON response with proper content type and status code
func (h *KYCHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", logger.Fields{
			"error":   err.Error(),
			"status":  status,
			"handler": "kyc",
		})
		http.Error(w, `{"error":"response encoding failed"}`, http.StatusInternalServerError)
	}
}

// respondError sends a standardized error response
func (h *KYCHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// parseAndValidateRequest parses and validates JSON request body. Media
// payloads ride inline, so the body cap is generous.
func (h *KYCHandler) parseAndValidateRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 16<<20) // two inline images plus headroom

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		h.logger.Warn("Invalid request body", logger.Fields{
			"error":    err.Error(),
			"handler":  "kyc",
			"endpoint": r.URL.Path,
		})
		h.respondError(w, http.StatusBadRequest, "Invalid request body format")
		return false
	}

	if fieldErrs := h.validator.ValidateStructured(req); fieldErrs != nil {
		h.logger.Warn("Request validation failed", logger.Fields{
			"fields":   fieldErrs,
			"handler":  "kyc",
			"endpoint": r.URL.Path,
		})
		// Field -> message map so the intake form can mark each input inline.
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Validation failed",
			"fields": fieldErrs,
		})
		return false
	}

	return true
}

// sessionIDFromPath extracts and parses the {id} path variable.
func (h *KYCHandler) sessionIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// ==============================================================================
// ENDPOINT 1: START VERIFICATION
// ==============================================================================

// StartVerification accepts the full intake payload, drives it through the
// intake state machine, and launches the asynchronous analysis session.
// POST /api/v1/verify
func (h *KYCHandler) StartVerification(w http.ResponseWriter, r *http.Request) {
	var req domain.StartVerificationRequest
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	bundle, err := h.runIntake(&req)
	if err != nil {
		h.logger.Warn("Intake rejected", logger.Fields{
			"event": "intake_rejected",
			"error": err.Error(),
		})
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := h.service.Start(bundle)

	h.logger.Info("Verification accepted", logger.Fields{
		"event":         "verification_accepted",
		"session_id":    sessionID.String(),
		"document_type": string(req.DocumentType),
		"ip":            r.RemoteAddr,
	})

	h.respondJSON(w, http.StatusAccepted, domain.StartVerificationResponse{
		SessionID: sessionID,
		Status:    domain.KYCStatusProcessing,
		Message:   "Verification in progress",
	})
}

// runIntake replays the one-shot API payload through the step machine so the
// same guards apply whether the client arrives step-by-step or all at once.
func (h *KYCHandler) runIntake(req *domain.StartVerificationRequest) (*intake.Bundle, error) {
	session := intake.NewSession()
	if err := session.SetDetails(domain.ApplicantInput{
		FullName:     validator.Sanitize(req.FullName),
		Email:        validator.Sanitize(req.Email),
		DocumentType: req.DocumentType,
	}); err != nil {
		return nil, err
	}
	if err := session.Next(); err != nil {
		return nil, err
	}

	docBytes, err := decodePayload(req.DocumentFile)
	if err != nil {
		return nil, kycerrors.Wrap(err, "document payload")
	}
	if err := session.CaptureDocument(intake.CaptureFunc(func() (domain.EncodedMedia, error) {
		return h.media.EncodeDocument(req.DocumentName, docBytes)
	})); err != nil {
		return nil, err
	}
	if err := session.Next(); err != nil {
		return nil, err
	}

	if err := session.CaptureSelfie(intake.CaptureFunc(func() (domain.EncodedMedia, error) {
		if strings.HasPrefix(req.SelfieFrame, "data:") {
			return h.media.EncodeFrame([]byte(req.SelfieFrame))
		}
		frame, err := base64.StdEncoding.DecodeString(req.SelfieFrame)
		if err != nil {
			return "", kycerrors.Wrap(err, "selfie payload")
		}
		return h.media.EncodeFrame(frame)
	})); err != nil {
		return nil, err
	}
	if err := session.Next(); err != nil {
		return nil, err
	}

	return session.Bundle()
}

// decodePayload accepts both raw base64 and data-URI-prefixed media values.
func decodePayload(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if idx := strings.Index(s, ","); idx >= 0 {
			s = s[idx+1:]
		}
	}
	return base64.StdEncoding.DecodeString(s)
}

// ==============================================================================
// ENDPOINT 2: SESSION STATE
// ==============================================================================

// GetSessionState reports session progress for polling clients.
// GET /api/v1/verify/{id}
func (h *KYCHandler) GetSessionState(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	state, err := h.service.State(id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.respondJSON(w, http.StatusOK, state)
}

// ==============================================================================
// ENDPOINT 3: ABANDON SESSION
// ==============================================================================

// AbandonSession tears down an in-flight session; any eventual engine result
// is discarded.
// DELETE /api/v1/verify/{id}
func (h *KYCHandler) AbandonSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.service.Abandon(id); err != nil {
		switch {
		case errors.Is(err, kycerrors.ErrSessionNotFound):
			h.respondError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, kycerrors.ErrSessionAbandoned):
			h.respondError(w, http.StatusConflict, "Session already terminal")
		default:
			h.respondError(w, http.StatusInternalServerError, "Failed to abandon session")
		}
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

// ==============================================================================
// ENDPOINT 4: LIST SUBMISSIONS
// ==============================================================================

// ListSubmissions queries the ledger, newest-first.
// GET /api/v1/submissions?status=&search=
func (h *KYCHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	var status *domain.KYCStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		candidate := domain.KYCStatus(strings.ToUpper(raw))
		if !candidate.IsValid() {
			h.respondError(w, http.StatusBadRequest, kycerrors.ErrInvalidStatus.Error())
			return
		}
		status = &candidate
	}

	subs := h.store.Query(status, r.URL.Query().Get("search"))
	h.respondJSON(w, http.StatusOK, domain.SubmissionListResponse{
		Submissions: subs,
		Total:       len(subs),
	})
}

// ==============================================================================
// ENDPOINT 5: SUBMISSION DETAIL
// ==============================================================================

// GetSubmission returns one record including the embedded verification result.
// GET /api/v1/submissions/{id}
func (h *KYCHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid submission id")
		return
	}

	sub, err := h.store.FindByID(id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Submission not found")
		return
	}
	h.respondJSON(w, http.StatusOK, sub)
}

// ==============================================================================
// ENDPOINT 6: DASHBOARD STATS
// ==============================================================================

// GetStats returns the review dashboard aggregates, recomputed on every call.
// GET /api/v1/stats
func (h *KYCHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.store.Stats())
}
