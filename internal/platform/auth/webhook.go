package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultWebhookTolerance = 5 * time.Minute

var (
	// ErrWebhookSignature signals a missing or mismatching webhook signature.
	ErrWebhookSignature = errors.New("auth: webhook signature invalid")
	// ErrWebhookStale signals a webhook timestamp outside the tolerance window.
	ErrWebhookStale = errors.New("auth: webhook timestamp outside tolerance")
)

// WebhookVerifier validates Stripe-style signature headers of the form
// "t=<unix>,v1=<hex hmac>" where the MAC covers "<unix>.<payload>".
type WebhookVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewWebhookVerifier builds a verifier for the given shared secret.
func NewWebhookVerifier(secret string, tolerance time.Duration, clock func() time.Time) (*WebhookVerifier, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("auth: webhook secret is required")
	}
	if tolerance <= 0 {
		tolerance = defaultWebhookTolerance
	}
	if clock == nil {
		clock = time.Now
	}
	return &WebhookVerifier{
		secret:    []byte(trimmed),
		tolerance: tolerance,
		now:       clock,
	}, nil
}

// Verify checks the signature header against the raw request payload.
func (v *WebhookVerifier) Verify(payload []byte, header string) error {
	if v == nil {
		return ErrWebhookSignature
	}
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := v.now().UTC().Sub(time.Unix(timestamp, 0))
	if age < -v.tolerance || age > v.tolerance {
		return ErrWebhookStale
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, signature := range signatures {
		decoded, err := hex.DecodeString(signature)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return ErrWebhookSignature
}

// Sign produces a signature header for the payload, used by tests and
// internal callers that emit signed events.
func (v *WebhookVerifier) Sign(payload []byte, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(strings.TrimSpace(header), ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrWebhookSignature)
			}
			timestamp = parsed
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: header incomplete", ErrWebhookSignature)
	}
	return timestamp, signatures, nil
}
