// Copyright (c) Microsoft. All rights reserved.

package systools

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/microsoft/agent-server/go/agentserver"
)

// sensitivePatterns flags variable names whose values should not be shown.
var sensitivePatterns = []string{
	"KEY", "TOKEN", "SECRET", "PASSWORD", "PWD",
	"API_KEY", "AUTH", "CREDENTIAL", "PRIVATE",
}

const redactedValue = "***REDACTED***"

func isSensitive(name string) bool {
	upper := strings.ToUpper(name)
	for _, p := range sensitivePatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}

type listEnvArgs struct {
	Redact *bool `json:"redact" jsonschema:"description=Whether to redact sensitive variables (recommended),default=true"`
}

func listEnvironmentVariables(ctx context.Context, raw json.RawMessage) (any, error) {
	var args listEnvArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return agentserver.ToolResult{
				Supported: false,
				Scope:     scope(),
				Reason:    "invalid arguments: " + err.Error(),
			}, nil
		}
	}
	// Redaction defaults to on; only an explicit false disables it.
	redact := args.Redact == nil || *args.Redact

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		if redact && isSensitive(k) {
			env[k] = redactedValue
		} else {
			env[k] = v
		}
	}

	return agentserver.ToolResult{
		Supported: true,
		Scope:     scope(),
		Data: map[string]any{
			"count":     len(env),
			"redacted":  redact,
			"variables": env,
		},
	}, nil
}
