package security

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"caretaker.app/relay/internal/metrics"
)

const SignaturePrefix = "sha256="

// VerifyRequest carries the exact bytes the sender signed. Payload must be the raw
// request body; re-encoding parsed JSON changes the bytes and breaks the HMAC.
type VerifyRequest struct {
	Payload   []byte
	Signature string
	ClientIP  string
}

// Gate authenticates inbound webhooks against every live secret in the ring and
// rejects signatures that were already accepted inside the replay window.
type Gate struct {
	ring    SecretRing
	replay  ReplayGuard
	auditor Auditor
	metrics *metrics.Metrics
}

func NewGate(ring SecretRing, replay ReplayGuard, auditor Auditor, m *metrics.Metrics) *Gate {
	return &Gate{
		ring:    ring,
		replay:  replay,
		auditor: auditor,
		metrics: m,
	}
}

// Verify returns nil when the request is authentic and fresh. Every accepted
// request writes exactly one replay record; every rejection writes one audit record.
func (g *Gate) Verify(ctx context.Context, req VerifyRequest) error {
	err := g.verify(ctx, req)
	outcome := OutcomeOf(err)
	g.metrics.ObserveSignature(string(outcome))

	if err != nil {
		rec := AuditRecord{ClientIP: req.ClientIP, Outcome: outcome}
		if outcome == OutcomeInvalidSignature {
			rec.PayloadDigest = payloadDigest(req.Payload)
		}
		if outcome == OutcomeVerificationError {
			slog.ErrorContext(ctx, "signature verification failed", "error", err)
		}
		if g.auditor != nil {
			g.auditor.Record(ctx, rec)
		}
	}
	return err
}

func (g *Gate) verify(ctx context.Context, req VerifyRequest) error {
	sig := strings.TrimSpace(req.Signature)
	if !strings.HasPrefix(sig, SignaturePrefix) {
		return ErrMissingSignature
	}

	secrets, err := g.ring.ActiveSecrets(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}

	claimed, err := hex.DecodeString(strings.TrimPrefix(sig, SignaturePrefix))
	if err != nil || len(claimed) != sha256.Size {
		return ErrInvalidSignature
	}

	if !matchesAny(secrets, req.Payload, claimed) {
		return ErrInvalidSignature
	}

	// Key on the decoded digest so hex case variations map to the same record.
	fresh, err := g.replay.Record(ctx, hex.EncodeToString(claimed))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if !fresh {
		return ErrReplayDetected
	}
	return nil
}

// matchesAny tries every secret, newest first, so senders still signing with a
// recently rotated-out secret keep working until it is evicted.
func matchesAny(secrets []string, payload, claimed []byte) bool {
	for _, secret := range secrets {
		if hmac.Equal(computeMAC(secret, payload), claimed) {
			return true
		}
	}
	return false
}

func computeMAC(secret string, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

// Sign produces the header value a sender holding secret would attach to payload.
func Sign(secret string, payload []byte) string {
	return SignaturePrefix + hex.EncodeToString(computeMAC(secret, payload))
}

func payloadDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
