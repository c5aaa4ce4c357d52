package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"inkeep-github-trigger/models"
)

// DispatcherService defines the interface for delivering the assembled
// payload to the trigger endpoint. One POST, no retries.
type DispatcherService interface {
	// Send serializes, optionally signs, and POSTs the payload, then
	// interprets the acknowledgment.
	Send(ctx context.Context, triggerURL string, payload *models.TriggerPayload, signingSecret string) (*models.TriggerResponse, error)
}

// DispatcherServiceImpl implements the DispatcherService interface
type DispatcherServiceImpl struct {
	client *http.Client
	logger *zap.Logger
}

// NewDispatcherService creates a new DispatcherService
func NewDispatcherService(logger *zap.Logger) DispatcherService {
	return &DispatcherServiceImpl{
		client: &http.Client{},
		logger: logger,
	}
}

// Send serializes, optionally signs, and POSTs the payload
func (s *DispatcherServiceImpl) Send(ctx context.Context, triggerURL string, payload *models.TriggerPayload, signingSecret string) (*models.TriggerResponse, error) {
	// Serialize exactly once: the signature must cover the literal bytes on
	// the wire, not a re-serialization that might order fields differently.
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeInvariantViolation, err, "payload does not serialize")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, triggerURL, bytes.NewReader(body))
	if err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeTriggerDeliveryFailed, err,
			"failed to create trigger request for %s", sanitizeURL(triggerURL))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", models.UserAgent)
	if signingSecret != "" {
		req.Header.Set(models.SignatureHeader, SignBody(body, signingSecret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeTriggerDeliveryFailed, err,
			"failed to deliver trigger to %s", sanitizeURL(triggerURL))
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeTriggerDeliveryFailed, err,
			"failed to read trigger response from %s", sanitizeURL(triggerURL))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, models.NewTriggerError(models.ErrCodeTriggerDeliveryFailed,
			"trigger endpoint %s returned status %d: %s", sanitizeURL(triggerURL), resp.StatusCode, string(responseBody))
	}

	s.logger.Info("Trigger delivered",
		zap.String("url", sanitizeURL(triggerURL)),
		zap.Int("status", resp.StatusCode),
		zap.Int("bodyBytes", len(body)))

	return s.parseResponse(responseBody)
}

// parseResponse interprets the acknowledgment body. Delivery has already
// succeeded by the time this runs, so a body that fails the schema degrades
// to best-effort field extraction instead of failing the run.
func (s *DispatcherServiceImpl) parseResponse(body []byte) (*models.TriggerResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeInvalidTriggerResponse, err,
			"trigger response is not valid JSON: %s", string(body))
	}

	if err := models.ValidateResponseJSON(body); err == nil {
		var response models.TriggerResponse
		if err := json.Unmarshal(body, &response); err == nil {
			return &response, nil
		}
	}

	// The endpoint has answered with both camelCase and snake_case field
	// names across versions; tolerate exactly those two spellings.
	s.logger.Warn("Trigger response failed schema validation, extracting fields best-effort",
		zap.ByteString("body", body))

	response := &models.TriggerResponse{
		Success:        extractBool(raw, "success"),
		InvocationID:   extractString(raw, "invocationId", "invocation_id"),
		ConversationID: extractString(raw, "conversationId", "conversation_id"),
	}
	return response, nil
}

// SignBody computes the HMAC-SHA256 signature header value for the exact
// request body bytes, in the form "sha256=<hex-digest>".
func SignBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}

func extractString(raw map[string]json.RawMessage, names ...string) string {
	for _, name := range names {
		if value, ok := raw[name]; ok {
			var str string
			if err := json.Unmarshal(value, &str); err == nil {
				return str
			}
		}
	}
	return ""
}

func extractBool(raw map[string]json.RawMessage, name string) bool {
	if value, ok := raw[name]; ok {
		var b bool
		if err := json.Unmarshal(value, &b); err == nil {
			return b
		}
	}
	return false
}
