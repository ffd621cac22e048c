package goVault

import (
	"io"

	internalaudit "github.com/MrEthical07/goVault/internal/audit"
	"go.uber.org/zap"
)

// AuditEvent is one security-relevant occurrence. One-time codes and phone numbers
// are masked before an event is built, and no event carries a password, secret,
// hash or full token.
type AuditEvent = internalaudit.Event

// AuditSink receives events from the engine's background dispatcher. Emit should
// return promptly; a slow sink fills the buffer and events are then dropped.
type AuditSink = internalaudit.Sink

// AuditSeverity grades an event.
type AuditSeverity = internalaudit.Severity

const (
	SeverityInfo     = internalaudit.SeverityInfo
	SeverityWarning  = internalaudit.SeverityWarning
	SeverityCritical = internalaudit.SeverityCritical
)

// NoOpSink discards every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events into a buffered channel, mostly for tests.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink writes events as structured zap entries.
type ZapSink = internalaudit.ZapSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink logs events under the "audit" child of logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
