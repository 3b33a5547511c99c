package observability

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/smallbiznis/dreamforge/internal/config"
)

// Config is the logging and telemetry view of the process configuration.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// overrides are the standard OTEL_* and logging variables. Fields left unset
// keep the value derived from the application config.
type overrides struct {
	Environment    string  `env:"DEPLOYMENT_ENV"`
	Version        string  `env:"SERVICE_VERSION"`
	LogLevel       string  `env:"LOG_LEVEL"`
	LogFormat      string  `env:"LOG_FORMAT"`
	OtelEnabled    bool    `env:"OTEL_ENABLED"`
	Endpoint       string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Protocol       string  `env:"OTEL_EXPORTER_OTLP_PROTOCOL"`
	TracesProtocol string  `env:"OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"`
	SamplingRatio  float64 `env:"OTEL_SAMPLING_RATIO"`
}

// LoadConfig derives telemetry settings from cfg. Production exports traces
// and samples one request in ten; other environments keep telemetry local
// and sample everything once it is switched on.
func LoadConfig(cfg config.Config) (Config, error) {
	o := overrides{
		Environment:   cfg.Environment,
		Version:       cfg.AppVersion,
		LogLevel:      "info",
		OtelEnabled:   cfg.IsProduction(),
		Endpoint:      cfg.OTLPEndpoint,
		Protocol:      "grpc",
		SamplingRatio: 1,
	}
	if cfg.IsProduction() {
		o.SamplingRatio = 0.1
	}
	if err := env.Parse(&o); err != nil {
		return Config{}, err
	}

	protocol := o.Protocol
	if traces := strings.TrimSpace(o.TracesProtocol); traces != "" {
		protocol = traces
	}
	ratio := o.SamplingRatio
	if ratio < 0 || ratio > 1 {
		ratio = 1
	}

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "dreamforge"
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.ToLower(strings.TrimSpace(o.Environment)),
		Version:              strings.TrimSpace(o.Version),
		LogLevel:             strings.ToLower(strings.TrimSpace(o.LogLevel)),
		LogFormat:            strings.ToLower(strings.TrimSpace(o.LogFormat)),
		OtelEnabled:          o.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(o.Endpoint),
		OtelExporterProtocol: strings.ToLower(strings.TrimSpace(protocol)),
		OtelSamplingRatio:    ratio,
	}, nil
}

// Debug turns on verbose logging, console output and gorm statement logs.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch c.Environment {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
