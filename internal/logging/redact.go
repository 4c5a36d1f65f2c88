package logging

import (
	"strconv"

	"github.com/gitzenhq/gitzen/internal/privacy"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var redactionsApplied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gitzen_log_redactions_total",
	Help: "Log messages or fields rewritten by the redacting encoder.",
})

// Secret creates a field that never carries the value, only its length.
func Secret(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// RedactedString is an alias of Secret kept for call-site readability
// when the value is not a credential but still must not be logged.
func RedactedString(key, val string) zap.Field {
	return Secret(key, val)
}

// RedactingEncoder wraps a zapcore.Encoder and scrubs every record as
// the final step before formatting: sensitive field names are replaced
// with the fixed marker, string values and the entry message pass
// through the privacy redactor, and (optionally) high-entropy values
// are suppressed even without a pattern match.
type RedactingEncoder struct {
	zapcore.Encoder
	sanitizer    *privacy.Sanitizer
	extraFields  map[string]bool
	entropyGuard bool
}

// NewRedactingEncoder wraps base with redaction rules.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) *RedactingEncoder {
	extra := make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		extra[privacy.NormalizeKey(f)] = true
	}
	return &RedactingEncoder{
		Encoder:      base,
		sanitizer:    privacy.NewSanitizer(nil),
		extraFields:  extra,
		entropyGuard: cfg.EntropyGuard,
	}
}

func (e *RedactingEncoder) shouldRedactKey(key string) bool {
	if e.extraFields[privacy.NormalizeKey(key)] {
		return true
	}
	return e.sanitizer.IsSensitiveKey(key)
}

func (e *RedactingEncoder) redactValue(val string) string {
	out := privacy.Redact(val)
	if e.entropyGuard && out == val && privacy.IsLikelySecret(val, 0) && !isUUID(val) {
		out = privacy.Marker
	}
	if out != val {
		redactionsApplied.Inc()
	}
	return out
}

// isUUID exempts identifier fields from the entropy guard. Row and
// request ids are UUID strings and pass the character-class heuristic;
// suppressing them would strip the audit trail out of the logs.
func isUUID(val string) bool {
	_, err := uuid.Parse(val)
	return err == nil
}

// EncodeEntry scrubs the message and every log-site field before
// delegating to the wrapped encoder. This is the choke point: fields
// attached at the call site do not pass through the Add* methods, so
// they are rewritten here.
func (e *RedactingEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	entry.Message = e.redactValue(entry.Message)

	scrubbed := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		scrubbed[i] = e.redactField(f)
	}
	return e.Encoder.EncodeEntry(entry, scrubbed)
}

func (e *RedactingEncoder) redactField(f zapcore.Field) zapcore.Field {
	if e.shouldRedactKey(f.Key) {
		redactionsApplied.Inc()
		return zap.String(f.Key, privacy.Marker)
	}
	switch f.Type {
	case zapcore.StringType:
		return zap.String(f.Key, e.redactValue(f.String))
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok && err != nil {
			return zap.String(f.Key, e.redactValue(err.Error()))
		}
	case zapcore.ByteStringType:
		if b, ok := f.Interface.([]byte); ok {
			return zap.String(f.Key, e.redactValue(string(b)))
		}
	}
	return f
}

// Add* overrides cover fields bound with Logger.With, which bypass
// EncodeEntry.

func (e *RedactingEncoder) AddString(key, val string) {
	if e.shouldRedactKey(key) {
		e.Encoder.AddString(key, privacy.Marker)
		return
	}
	e.Encoder.AddString(key, e.redactValue(val))
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.shouldRedactKey(key) {
		e.Encoder.AddByteString(key, []byte(privacy.Marker))
		return
	}
	e.Encoder.AddByteString(key, []byte(e.redactValue(string(val))))
}

func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if e.shouldRedactKey(key) {
		e.Encoder.AddString(key, privacy.Marker)
		return
	}
	e.Encoder.AddBinary(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.shouldRedactKey(key) {
		e.Encoder.AddString(key, privacy.Marker)
		return nil
	}
	return e.Encoder.AddReflected(key, e.sanitizer.SanitizeValue(val))
}

func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.shouldRedactKey(key) {
		e.Encoder.AddString(key, privacy.Marker)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.shouldRedactKey(key) {
		e.Encoder.AddString(key, privacy.Marker)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// Clone creates a copy of the encoder.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{
		Encoder:      e.Encoder.Clone(),
		sanitizer:    e.sanitizer,
		extraFields:  e.extraFields,
		entropyGuard: e.entropyGuard,
	}
}
