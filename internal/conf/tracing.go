package conf

import "fmt"

type TracingExporter = string

const (
	OpenTelemetryTracing TracingExporter = "opentelemetry"
)

type TracingConfig struct {
	Enabled  bool
	Exporter TracingExporter `default:"opentelemetry"`

	// ExporterProtocol is the OTEL_EXPORTER_OTLP_PROTOCOL env variable,
	// only available when exporter is opentelemetry. See:
	// https://github.com/open-telemetry/opentelemetry-specification/blob/main/specification/protocol/exporter.md
	ExporterProtocol string `default:"http/protobuf" envconfig:"OTEL_EXPORTER_OTLP_PROTOCOL"`

	// ServiceName is the service name reported with every span.
	ServiceName string `default:"integrations" split_words:"true"`
}

func (tc *TracingConfig) Validate() error {
	if !tc.Enabled {
		return nil
	}
	switch tc.ExporterProtocol {
	case "grpc", "http/protobuf":
		return nil
	}
	return fmt.Errorf("unsupported OpenTelemetry exporter protocol %q", tc.ExporterProtocol)
}
