package config

import "os"

// TracingConfig configures the OTLP/HTTP trace exporter.  Tracing is
// disabled when Endpoint is empty.
type TracingConfig struct {
    Endpoint    string // host:port of the OTLP collector
    URLPath     string
    Insecure    bool
    ServiceName string
    Version     string
}

func LoadTracingConfig() TracingConfig {
    return TracingConfig{
        Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
        URLPath:     envStr("OTEL_EXPORTER_OTLP_TRACES_PATH", "/v1/traces"),
        Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
        ServiceName: envStr("OTEL_SERVICE_NAME", "ticketboss"),
        Version:     envStr("SERVICE_VERSION", "dev"),
    }
}
