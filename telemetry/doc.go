// Copyright (c) Microsoft. All rights reserved.

// Package telemetry wires OpenTelemetry tracing for the agent runtime.
//
// Call [Init] once at startup and defer the returned shutdown function:
//
//	tp, shutdown, err := telemetry.Init(ctx, telemetry.Config{
//	    ServiceName: "sysagent",
//	    Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer shutdown(context.Background())
//
// With an empty endpoint, Init returns the global (no-op) provider so spans
// cost nothing; the runner's span structure stays identical either way.
package telemetry
