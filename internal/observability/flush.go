package observability

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// FlushTelemetry flushes telemetry buffers before process exit. When
// metricsOut is non-nil the registry is dumped there as well.
func FlushTelemetry(ctx context.Context, logger *zap.Logger, metricsOut io.Writer) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if metricsOut != nil {
		if err := WriteMetrics(metricsOut); err != nil {
			return fmt.Errorf("flush metrics: %w", err)
		}
	}
	if logger != nil {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return nil
}
