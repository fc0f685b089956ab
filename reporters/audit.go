package reporters

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditLogger records which reporter ran, against which catalog, for
// how long — an observability concern the reporter boundary is allowed
// to carry even though the analysis core stays silent.
type AuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger wraps a zap.Logger (typically zap.NewProduction() in
// cmd/dbforensic, or zap.NewNop() in tests).
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// RunContext identifies one reporter invocation for the audit trail.
type RunContext struct {
	Format   string
	Provider string
	Schema   string
	RunID    string
}

func (rc RunContext) fields() []zap.Field {
	return []zap.Field{
		zap.String("format", rc.Format),
		zap.String("provider", rc.Provider),
		zap.String("schema", rc.Schema),
		zap.String("run_id", rc.RunID),
	}
}

// values groups a RunContext's fields under a single object field,
// matching the corpus's preferred grouping helper for structured zap
// output.
func values(fields ...zap.Field) zap.Field {
	return zap.Object("run", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		for _, f := range fields {
			f.AddTo(enc)
		}
		return nil
	}))
}

// LogRun records one completed reporter invocation with its duration.
func (a *AuditLogger) LogRun(rc RunContext, started time.Time, err error) {
	elapsed := time.Since(started)
	if err != nil {
		a.logger.Error("reporter run failed", values(rc.fields()...), zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	a.logger.Info("reporter run completed", values(rc.fields()...), zap.Duration("elapsed", elapsed))
}
