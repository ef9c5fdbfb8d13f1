package observability

import (
	"fmt"

	"go.uber.org/zap"

	"bild-story/formats"
)

// NewLogger crea il logger dell'applicazione: development in debug, production altrimenti
func NewLogger(debug bool) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// DiagnosticReporter inoltra le diagnostiche delle espressioni al logger e al collector.
// collector può essere nil.
func DiagnosticReporter(logger *zap.Logger, collector *Collector, story string) formats.Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(d formats.Diagnostic) {
		logger.Warn("espressione non valida",
			zap.String("story", story),
			zap.String("kind", string(d.Kind)),
			zap.String("expression", d.Expression),
			zap.Error(d.Err),
		)
		if collector != nil {
			collector.ExpressionFailures.WithLabelValues(string(d.Kind)).Inc()
		}
	}
}
