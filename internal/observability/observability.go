// Package observability configures the process-wide slog logger.
//
// Plain text and JSON handlers write to stderr so command output on stdout
// stays machine-readable. When an OTLP endpoint is configured via the
// standard OTEL_EXPORTER_OTLP_ENDPOINT environment variable, log records are
// instead bridged through the OpenTelemetry log SDK, filtered to the
// configured level with a minimum-severity processor.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const loggerName = "memberstack-cli"

// provider holds the active OpenTelemetry logger provider, when one is in
// use, so Shutdown can flush it.
var provider *sdklog.LoggerProvider

// Instrument installs the process-wide slog default according to the
// configured level and format: "text", "json", or "otel" (OpenTelemetry
// record output, OTLP when OTEL_EXPORTER_OTLP_ENDPOINT is set, stdout
// records otherwise).
func Instrument(level slog.Level, format string) error {
	switch format {
	case "text":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	case "otel":
		return instrumentOTel(level)
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}
}

func instrumentOTel(level slog.Level) error {
	exporter, err := newExporter(context.Background())
	if err != nil {
		return fmt.Errorf("creating log exporter: %w", err)
	}

	processor := minsev.NewLogProcessor(
		sdklog.NewBatchProcessor(exporter),
		severityFor(level),
	)
	provider = sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

	slog.SetDefault(otelslog.NewLogger(loggerName, otelslog.WithLoggerProvider(provider)))
	return nil
}

// newExporter builds an OTLP exporter when an endpoint is configured,
// honoring OTEL_EXPORTER_OTLP_PROTOCOL (grpc or http/protobuf), and falls
// back to stdout records for local debugging.
func newExporter(ctx context.Context) (sdklog.Exporter, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return stdoutlog.New(stdoutlog.WithWriter(os.Stderr))
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" {
		return otlploggrpc.New(ctx)
	}
	return otlploghttp.New(ctx)
}

func severityFor(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}

// Shutdown flushes any buffered log records. A no-op for the plain slog
// handlers.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}
