// ==============================================================================
// VERIFICATION ENGINE CLIENT - internal/engine/client.go
// ==============================================================================
// Talks to the external document/biometric analysis engine. The contract is
// fail-safe: Submit always hands back a result, and any transport or decode
// failure collapses into a maximum-risk synthetic verdict. An unreachable
// engine must never look like a clean pass.
// ==============================================================================

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kycflow/pkg/config"
	"kycflow/pkg/domain"
	"kycflow/pkg/logger"
)

// verifyRequest is the wire shape the analysis engine accepts.
type verifyRequest struct {
	DocumentBase64 string `json:"documentBase64"`
	SelfieBase64   string `json:"selfieBase64"`
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxRetries   int
	retryBackoff time.Duration
	cache        ResultCache
	logger       logger.Logger
}

func NewClient(cfg config.EngineConfig, cache ResultCache, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		cache:        cache,
		logger:       log,
	}
}

// Submit sends the document/selfie pair for analysis. It never returns an
// error: failures resolve to the conservative synthetic result so the caller
// always reaches a terminal, explainable state.
func (c *Client) Submit(ctx context.Context, document, selfie domain.EncodedMedia) *domain.VerificationResult {
	doc := stripDataURI(string(document))
	face := stripDataURI(string(selfie))

	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, doc, face); ok {
			c.logger.Info("Verification result served from cache", logger.Fields{
				"event": "engine_cache_hit",
			})
			return cached
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return c.failSafe(ctx.Err())
			case <-time.After(c.retryBackoff):
			}
		}

		result, err := c.submitOnce(ctx, doc, face)
		if err == nil {
			if c.cache != nil {
				c.cache.Set(ctx, doc, face, result)
			}
			return result
		}
		lastErr = err
		c.logger.Warn("Verification engine call failed", logger.Fields{
			"event":   "engine_call_failed",
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}

	return c.failSafe(lastErr)
}

func (c *Client) submitOnce(ctx context.Context, doc, selfie string) (*domain.VerificationResult, error) {
	body, err := json.Marshal(verifyRequest{
		DocumentBase64: doc,
		SelfieBase64:   selfie,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("engine returned status %d", resp.StatusCode)
	}

	var result domain.VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("malformed engine response: %w", err)
	}

	return &result, nil
}

// failSafe builds the synthetic maximum-risk verdict. The caller cannot tell
// "engine said high risk" from "engine unreachable" at the type level; the
// distinction lives in the logs for operators.
func (c *Client) failSafe(cause error) *domain.VerificationResult {
	reason := "unknown failure"
	if cause != nil {
		reason = cause.Error()
	}
	c.logger.Error("Verification failed over to synthetic result", logger.Fields{
		"event":    "engine_failsafe",
		"cause":    reason,
		"base_url": c.baseURL,
	})
	return &domain.VerificationResult{
		DocumentValid:  false,
		FaceMatchScore: 0,
		TamperDetected: false,
		RiskScore:      100,
		ExtractedData:  &domain.ExtractedData{},
		Reasoning: fmt.Sprintf(
			"Verification engine at %s could not produce a result (%s). Submission held at maximum risk pending operator action.",
			c.baseURL, reason,
		),
	}
}

// stripDataURI removes a data:<mime>;base64, prefix if present; the engine
// accepts bare base64 only.
func stripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.Index(s, ","); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
