// Package domain defines the core business entities for the KYC verification flow.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ==============================================================================
// ENUMS & STATUS TYPES
// ==============================================================================

// KYCStatus represents the final disposition of a verification attempt.
type KYCStatus string

const (
	KYCStatusPending      KYCStatus = "PENDING"
	KYCStatusProcessing   KYCStatus = "PROCESSING"
	KYCStatusApproved     KYCStatus = "APPROVED"
	KYCStatusRejected     KYCStatus = "REJECTED"
	KYCStatusManualReview KYCStatus = "MANUAL_REVIEW"
)

// IsValid reports whether s is a member of the closed status enumeration.
func (s KYCStatus) IsValid() bool {
	switch s {
	case KYCStatusPending, KYCStatusProcessing, KYCStatusApproved,
		KYCStatusRejected, KYCStatusManualReview:
		return true
	}
	return false
}

// DocumentType represents the kind of identity document the applicant declared.
type DocumentType string

const (
	DocumentTypePassport       DocumentType = "passport"
	DocumentTypeNationalID     DocumentType = "national_id"
	DocumentTypeDriversLicense DocumentType = "drivers_license"
	DocumentTypeOther          DocumentType = "other"
)

// StepStatus represents the state of a single processing step shown during analysis.
type StepStatus string

const (
	StepStatusWaiting   StepStatus = "waiting"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusError     StepStatus = "error"
)

// StepID identifies one of the fixed analysis stages.
type StepID string

const (
	StepOCR       StepID = "ocr"
	StepTamper    StepID = "tamper"
	StepBiometric StepID = "biometric"
	StepRisk      StepID = "risk"
)

// ==============================================================================
// DOMAIN MODELS
// ==============================================================================

// EncodedMedia is an opaque content-bearing string, either a raw base64 payload
// or a data URI. Immutable once captured; a retake replaces it wholesale.
type EncodedMedia string

// ApplicantInput holds the personal details collected in intake step one.
// It lives only for the duration of an intake session and is discarded once a
// Submission is created.
type ApplicantInput struct {
	FullName     string       `json:"full_name" validate:"required"`
	Email        string       `json:"email" validate:"required"`
	DocumentType DocumentType `json:"document_type" validate:"required,document_type"`
}

// ExtractedData carries the fields the analysis engine read off the document.
// All fields are absent when unreadable.
type ExtractedData struct {
	Name     string `json:"name,omitempty"`
	DOB      string `json:"dob,omitempty"`
	IDNumber string `json:"idNumber,omitempty"`
}

// VerificationResult is the analysis engine's output for one submission attempt.
// RiskScore and FaceMatchScore are nominally clamped to [0,100] by the engine
// contract; the decision engine re-clamps defensively since the engine is an
// external, independently-evolving service. Produced once, immutable thereafter.
type VerificationResult struct {
	DocumentValid  bool           `json:"documentValid"`
	FaceMatchScore float64        `json:"faceMatchScore"`
	TamperDetected bool           `json:"tamperDetected"`
	RiskScore      float64        `json:"riskScore"`
	ExtractedData  *ExtractedData `json:"extractedData,omitempty"`
	Reasoning      string         `json:"reasoning,omitempty"`
}

// Submission is the durable record of a finished verification attempt.
// Created exactly once when a VerificationResult (real or fail-safe) is
// obtained, never mutated afterwards.
type Submission struct {
	ID           uuid.UUID           `json:"id"`
	FullName     string              `json:"full_name"`
	Email        string              `json:"email"`
	SubmittedAt  time.Time           `json:"submitted_at"`
	DocumentType DocumentType        `json:"document_type"`
	Status       KYCStatus           `json:"status"`
	RiskScore    float64             `json:"risk_score"`
	Result       *VerificationResult `json:"verification_result,omitempty"`

	// Media references are kept for the review surface; in a real deployment
	// these would be storage URLs rather than inline payloads.
	DocumentImage EncodedMedia `json:"document_image,omitempty"`
	SelfieImage   EncodedMedia `json:"selfie_image,omitempty"`
}

// ProcessingStep is the transient UI-facing state of one analysis stage.
// Exactly one step is active at a time until all are completed; a fresh set is
// created per verification attempt.
type ProcessingStep struct {
	ID     StepID     `json:"id"`
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
}

// ==============================================================================
// REQUEST/RESPONSE STRUCTS FOR API ENDPOINTS
// ==============================================================================

// StartVerificationRequest is the intake payload for a new verification attempt.
type StartVerificationRequest struct {
	FullName     string       `json:"full_name" validate:"required"`
	Email        string       `json:"email" validate:"required"`
	DocumentType DocumentType `json:"document_type" validate:"required,document_type"`
	DocumentFile string       `json:"document_file" validate:"required"`
	DocumentName string       `json:"document_name,omitempty"`
	SelfieFrame  string       `json:"selfie_frame" validate:"required"`
}

// StartVerificationResponse acknowledges an accepted verification session.
type StartVerificationResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Status    KYCStatus `json:"status"`
	Message   string    `json:"message"`
}

// SessionStateResponse reports the live state of a verification session.
type SessionStateResponse struct {
	SessionID    uuid.UUID        `json:"session_id"`
	State        string           `json:"state"`
	Steps        []ProcessingStep `json:"steps"`
	SubmissionID *uuid.UUID       `json:"submission_id,omitempty"`
}

// SubmissionListResponse wraps a filtered view over the submission ledger.
type SubmissionListResponse struct {
	Submissions []*Submission `json:"submissions"`
	Total       int           `json:"total"`
}

// StatsResponse carries the review dashboard aggregates. All figures are
// recomputed on read; nothing here is cached state.
type StatsResponse struct {
	Total            int            `json:"total"`
	Approved         int            `json:"approved"`
	ManualReview     int            `json:"manual_review"`
	Rejected         int            `json:"rejected"`
	AverageRiskScore string         `json:"average_risk_score"`
	RiskDistribution []RiskBucket   `json:"risk_distribution"`
	StatusBreakdown  map[string]int `json:"status_breakdown"`
}

// RiskBucket is one bar of the risk-distribution histogram.
type RiskBucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}
