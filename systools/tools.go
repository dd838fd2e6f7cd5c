// Copyright (c) Microsoft. All rights reserved.

package systools

import (
	"context"
	"encoding/json"

	"github.com/microsoft/agent-server/go/agentserver"
)

// SystemPrompt is the instruction block for an agent carrying these tools.
const SystemPrompt = `You are a System Utility Agent.
You can inspect the runtime environment using tools (processes, ports, resources, DNS).
Important:
- Always call capability_report early when the user asks questions that might depend on host vs container visibility.
- Never claim you can see host-wide processes/ports unless capability_report indicates it.
- Prefer using tools over guessing.
- Keep outputs clear and actionable.
`

// emptyObjectSchema declares a function that takes no parameters.
var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{},"required":[]}`)

// Tools returns the full system inspection tool set.
func Tools() []agentserver.Tool {
	return []agentserver.Tool{
		agentserver.NewTool(
			"capability_report",
			"Report what the agent can observe (container/host scope, visibility limits, optional binaries, cgroup limits).",
			emptyObjectSchema,
			func(ctx context.Context, _ json.RawMessage) (any, error) {
				return capabilityReport(ctx), nil
			},
		),
		agentserver.NewTool(
			"system_info",
			"Return OS, kernel, CPU counts, runtime details and uptime.",
			emptyObjectSchema,
			func(ctx context.Context, _ json.RawMessage) (any, error) {
				return systemInfo(ctx), nil
			},
		),
		agentserver.NewTypedTool[resourceSnapshotArgs](
			"resource_snapshot",
			"Return CPU/memory/disk usage (best-effort).",
			resourceSnapshot,
		),
		agentserver.NewTypedTool[listProcessesArgs](
			"list_processes",
			"List processes visible to this runtime. Optional name regex filter.",
			listProcesses,
		),
		agentserver.NewTypedTool[processDetailsArgs](
			"process_details",
			"Return detailed info for a PID (name, cmdline, memory, children, etc.).",
			processDetails,
		),
		agentserver.NewTypedTool[checkPortArgs](
			"check_port",
			"Check listeners for a given port in the current network namespace.",
			checkPort,
		),
		agentserver.NewTypedTool[dnsLookupArgs](
			"dns_lookup",
			"Resolve a hostname using the system resolver.",
			dnsLookup,
		),
		agentserver.NewTool(
			"list_environment_variables",
			"List environment variables visible to the current process. Sensitive values are redacted by default.",
			agentserver.GenerateSchema[listEnvArgs](),
			listEnvironmentVariables,
		),
	}
}

// RegisterAll registers the full tool set on the registry.
func RegisterAll(r *agentserver.Registry) error {
	return r.Register(Tools()...)
}
