// Package operation holds the generic wrappers every service runs its
// operations through: telemetry (span, metrics, panic recovery, logging) and
// a bun transaction. They are package-level functions because methods cannot
// have type parameters.
package operation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/esolangs/codeguessing/app/shared/metrics"
	"github.com/esolangs/codeguessing/app/shared/results"
)

// Telemetry bundles the observability dependencies of a service.
type Telemetry struct {
	Service string
	Logger  *slog.Logger
	Metrics metrics.OperationMetrics
	Tracer  trace.Tracer
}

// Func is the generic signature for service operation functions.
type Func[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// WithTelemetry wraps a service operation with tracing, metrics, and panic
// recovery.
func WithTelemetry[S any, F any](
	ctx context.Context,
	tel Telemetry,
	operationName string,
	identifier string,
	op Func[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if tel.Tracer != nil {
		ctx, span = tel.Tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if tel.Metrics != nil {
		tel.Metrics.RecordOperationAttempt(ctx, operationName, tel.Service)
	}

	startTime := time.Now()
	defer func() {
		if tel.Metrics != nil {
			tel.Metrics.RecordOperationDuration(ctx, operationName, tel.Service, time.Since(startTime))
		}
	}()

	logger := tel.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "Operation triggered",
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			if tel.Metrics != nil {
				tel.Metrics.RecordOperationFailure(ctx, operationName, tel.Service)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("error", wrappedErr),
		)
		if tel.Metrics != nil {
			tel.Metrics.RecordOperationFailure(ctx, operationName, tel.Service)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		logger.WarnContext(ctx, "Operation returned failure result",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("failure_payload", *result.Failure),
		)
	} else {
		logger.InfoContext(ctx, "Operation completed successfully",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
		)
	}

	if tel.Metrics != nil {
		tel.Metrics.RecordOperationSuccess(ctx, operationName, tel.Service)
	}

	return result, nil
}

// RunInTx runs fn inside a transaction on db. A nil db (unit tests with fakes)
// runs fn directly with a nil handle; repositories fall back to their default
// connection in that case.
func RunInTx[S any, F any](
	ctx context.Context,
	db *bun.DB,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]

	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}
