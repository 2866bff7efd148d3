package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycflow/internal/intake"
	"kycflow/internal/media"
	"kycflow/internal/submission"
	"kycflow/internal/verification"
	"kycflow/pkg/config"
	"kycflow/pkg/domain"
	kycerrors "kycflow/pkg/errors"
	"kycflow/pkg/logger"
	"kycflow/pkg/validator"
)

type stubAnalyzer struct {
	result *domain.VerificationResult
	// When set, Submit holds the result back until the channel is closed (or
	// the session is abandoned), keeping the session observably in flight.
	release chan struct{}
}

func (s *stubAnalyzer) Submit(ctx context.Context, document, selfie domain.EncodedMedia) *domain.VerificationResult {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
		}
	}
	return s.result
}

func jpegPayload() string {
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 64)...)
	return base64.StdEncoding.EncodeToString(data)
}

func newTestRouter(t *testing.T, store *submission.Store, result *domain.VerificationResult) (*mux.Router, *verification.Service) {
	return newTestRouterWithAnalyzer(t, store, &stubAnalyzer{result: result})
}

func newTestRouterWithAnalyzer(t *testing.T, store *submission.Store, analyzer verification.Analyzer) (*mux.Router, *verification.Service) {
	t.Helper()
	log := logger.NewNop()
	svc := verification.NewService(analyzer, store, config.ProgressConfig{
		TickInterval: time.Millisecond,
		SettleDelay:  time.Millisecond,
	}, log)
	h := NewKYCHandler(svc, store, media.NewAdapter(0, log), validator.New(), log)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/verify", h.StartVerification).Methods("POST")
	api.HandleFunc("/verify/{id}", h.GetSessionState).Methods("GET")
	api.HandleFunc("/verify/{id}", h.AbandonSession).Methods("DELETE")
	api.HandleFunc("/verify/{id}/progress/ws", h.StreamProgress).Methods("GET")
	api.HandleFunc("/submissions", h.ListSubmissions).Methods("GET")
	api.HandleFunc("/submissions/{id}", h.GetSubmission).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	return r, svc
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func validStartRequest() map[string]interface{} {
	return map[string]interface{}{
		"full_name":     "Alice Johnson",
		"email":         "alice@example.com",
		"document_type": "passport",
		"document_file": jpegPayload(),
		"selfie_frame":  jpegPayload(),
	}
}

func TestStartVerification_Accepted(t *testing.T) {
	r, _ := newTestRouter(t, submission.NewStore(), &domain.VerificationResult{
		DocumentValid: true, FaceMatchScore: 92, RiskScore: 15,
	})

	rec := doJSON(t, r, "POST", "/api/v1/verify", validStartRequest())
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp domain.StartVerificationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEqual(t, uuid.Nil, resp.SessionID)
	assert.Equal(t, domain.KYCStatusProcessing, resp.Status)

	// The accepted session is immediately pollable.
	poll := doJSON(t, r, "GET", "/api/v1/verify/"+resp.SessionID.String(), nil)
	require.Equal(t, http.StatusOK, poll.Code)
	var state domain.SessionStateResponse
	require.NoError(t, json.NewDecoder(poll.Body).Decode(&state))
	assert.Len(t, state.Steps, 4)
}

func TestStartVerification_ValidationFailures(t *testing.T) {
	r, _ := newTestRouter(t, submission.NewStore(), &domain.VerificationResult{})

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing name", func(m map[string]interface{}) { delete(m, "full_name") }},
		{"missing email", func(m map[string]interface{}) { delete(m, "email") }},
		{"missing document", func(m map[string]interface{}) { delete(m, "document_file") }},
		{"missing selfie", func(m map[string]interface{}) { delete(m, "selfie_frame") }},
		{"unknown document type", func(m map[string]interface{}) { m["document_type"] = "library_card" }},
		{"unexpected field", func(m map[string]interface{}) { m["admin"] = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validStartRequest()
			tt.mutate(body)
			rec := doJSON(t, r, "POST", "/api/v1/verify", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestStartVerification_StructuredFieldErrors(t *testing.T) {
	r, _ := newTestRouter(t, submission.NewStore(), &domain.VerificationResult{})

	body := validStartRequest()
	delete(body, "full_name")
	body["document_type"] = "library_card"
	rec := doJSON(t, r, "POST", "/api/v1/verify", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Each failing input gets its own message so the form can mark it inline.
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Validation failed", resp.Error)
	assert.Equal(t, "This field is required", resp.Fields["FullName"])
	assert.Equal(t, "Unsupported document type", resp.Fields["DocumentType"])
}

func TestStartVerification_RejectsUnsupportedDocument(t *testing.T) {
	r, _ := newTestRouter(t, submission.NewStore(), &domain.VerificationResult{})

	body := validStartRequest()
	body["document_file"] = base64.StdEncoding.EncodeToString([]byte("plain text, not an image"))
	rec := doJSON(t, r, "POST", "/api/v1/verify", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartVerification_EmptyBody(t *testing.T) {
	r, _ := newTestRouter(t, submission.NewStore(), &domain.VerificationResult{})
	rec := doJSON(t, r, "POST", "/api/v1/verify", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSessionState_Errors(t *testing.T) {
	r, _ := newTestRouter(t, submission.NewStore(), &domain.VerificationResult{})

	rec := doJSON(t, r, "GET", "/api/v1/verify/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, "GET", "/api/v1/verify/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAbandonSession(t *testing.T) {
	// Hold the engine result back so the session cannot complete on its own
	// before the abandon request lands.
	analyzer := &stubAnalyzer{
		result:  &domain.VerificationResult{DocumentValid: true, RiskScore: 10, FaceMatchScore: 90},
		release: make(chan struct{}),
	}
	defer close(analyzer.release)
	r, _ := newTestRouterWithAnalyzer(t, submission.NewStore(), analyzer)

	rec := doJSON(t, r, "POST", "/api/v1/verify", validStartRequest())
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp domain.StartVerificationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	del := doJSON(t, r, "DELETE", "/api/v1/verify/"+resp.SessionID.String(), nil)
	assert.Equal(t, http.StatusOK, del.Code)

	again := doJSON(t, r, "DELETE", "/api/v1/verify/"+resp.SessionID.String(), nil)
	assert.Equal(t, http.StatusConflict, again.Code)

	missing := doJSON(t, r, "DELETE", "/api/v1/verify/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestListSubmissions(t *testing.T) {
	store := submission.NewStore()
	submission.SeedDemoData(store)
	r, _ := newTestRouter(t, store, &domain.VerificationResult{})

	rec := doJSON(t, r, "GET", "/api/v1/submissions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list domain.SubmissionListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 3, list.Total)

	rec = doJSON(t, r, "GET", "/api/v1/submissions?status=approved", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, domain.KYCStatusApproved, list.Submissions[0].Status)

	rec = doJSON(t, r, "GET", "/api/v1/submissions?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, kycerrors.ErrInvalidStatus.Error(), errResp["error"])
}

func TestGetSubmission(t *testing.T) {
	store := submission.NewStore()
	sub := &domain.Submission{
		ID:       uuid.New(),
		FullName: "Bob Smith",
		Email:    "bob@example.com",
		Status:   domain.KYCStatusManualReview,
	}
	store.Append(sub)
	r, _ := newTestRouter(t, store, &domain.VerificationResult{})

	rec := doJSON(t, r, "GET", "/api/v1/submissions/"+sub.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Submission
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, sub.ID, got.ID)

	rec = doJSON(t, r, "GET", "/api/v1/submissions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStats(t *testing.T) {
	store := submission.NewStore()
	submission.SeedDemoData(store)
	r, _ := newTestRouter(t, store, &domain.VerificationResult{})

	rec := doJSON(t, r, "GET", "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.ManualReview)
	assert.NotEmpty(t, stats.AverageRiskScore)
	assert.Len(t, stats.RiskDistribution, 3)
}

func testBundle() *intake.Bundle {
	return &intake.Bundle{
		Applicant: domain.ApplicantInput{
			FullName:     "Alice Johnson",
			Email:        "alice@example.com",
			DocumentType: domain.DocumentTypePassport,
		},
		Document: "data:image/jpeg;base64,ZG9j",
		Selfie:   "data:image/jpeg;base64,c2VsZmll",
	}
}

func wsURL(base, sessionID string) string {
	return "ws" + strings.TrimPrefix(base, "http") + "/api/v1/verify/" + sessionID + "/progress/ws"
}

func TestStreamProgress_StreamsUntilNormalClosure(t *testing.T) {
	analyzer := &stubAnalyzer{
		result:  &domain.VerificationResult{DocumentValid: true, FaceMatchScore: 92, RiskScore: 15},
		release: make(chan struct{}),
	}
	r, svc := newTestRouterWithAnalyzer(t, submission.NewStore(), analyzer)

	srv := httptest.NewServer(r)
	defer srv.Close()

	id := svc.Start(testBundle())
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, id.String()), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// The stream is primed with the in-flight state before any result lands.
	var first domain.SessionStateResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, string(verification.SessionProcessing), first.State)
	assert.Len(t, first.Steps, 4)

	// Let the engine result land and drain the stream to its close frame.
	close(analyzer.release)
	last := first
	for {
		var snapshot domain.SessionStateResponse
		if err := conn.ReadJSON(&snapshot); err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure),
				"expected normal closure, got %v", err)
			break
		}
		last = snapshot
	}

	assert.Equal(t, string(verification.SessionCompleted), last.State)
	require.NotNil(t, last.SubmissionID)
	for _, step := range last.Steps {
		assert.Equal(t, domain.StepStatusCompleted, step.Status)
	}
}

func TestStreamProgress_UnknownSessionFailsHandshake(t *testing.T) {
	r, _ := newTestRouter(t, submission.NewStore(), &domain.VerificationResult{})

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, uuid.NewString()), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
