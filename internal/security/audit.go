package security

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"caretaker.app/relay/common/id"
	"github.com/redis/go-redis/v9"
)

const auditStreamMaxLen = 10000

// AuditRecord describes one rejected verification attempt. It never carries the
// secret or the signature, only a digest of the rejected payload.
type AuditRecord struct {
	ID            int64
	Timestamp     time.Time
	ClientIP      string
	Outcome       Outcome
	PayloadDigest string
}

type Auditor interface {
	Record(ctx context.Context, rec AuditRecord)
}

// AuditLog writes audit records to a dedicated logger and, when a client is
// configured, to a capped Redis stream for later inspection.
type AuditLog struct {
	logger *slog.Logger
	client *redis.Client
	stream string
}

func NewAuditLog(logger *slog.Logger, client *redis.Client, stream string) *AuditLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLog{
		logger: logger,
		client: client,
		stream: stream,
	}
}

func (a *AuditLog) Record(ctx context.Context, rec AuditRecord) {
	if rec.ID == 0 {
		rec.ID = id.New()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	attrs := []any{
		"audit_id", rec.ID,
		"ts", rec.Timestamp.UnixMilli(),
		"client_ip", rec.ClientIP,
		"outcome", string(rec.Outcome),
	}
	if rec.PayloadDigest != "" {
		attrs = append(attrs, "payload_sha256", rec.PayloadDigest)
	}
	a.logger.WarnContext(ctx, "webhook verification rejected", attrs...)

	if a.client == nil || a.stream == "" {
		return
	}

	values := map[string]any{
		"audit_id":  strconv.FormatInt(rec.ID, 10),
		"ts":        rec.Timestamp.UnixMilli(),
		"client_ip": rec.ClientIP,
		"outcome":   string(rec.Outcome),
	}
	if rec.PayloadDigest != "" {
		values["payload_sha256"] = rec.PayloadDigest
	}

	if err := a.client.XAdd(ctx, &redis.XAddArgs{
		Stream: a.stream,
		MaxLen: auditStreamMaxLen,
		Approx: true,
		Values: values,
	}).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to append audit record", "error", err, "stream", a.stream)
	}
}
