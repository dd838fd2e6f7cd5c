// Copyright (c) Microsoft. All rights reserved.

// Package systools provides container-aware system inspection tools for an
// agent runtime: capability reporting, OS and resource information, process
// listing, port checks, DNS lookups and environment variable listing.
//
// Register the full set on a registry:
//
//	registry := agentserver.NewRegistry()
//	if err := systools.RegisterAll(registry); err != nil {
//	    log.Fatal(err)
//	}
//
// Every tool returns an [agentserver.ToolResult] whose Scope field reports
// whether the observation covers the container or the host. Deep inspection
// (processes, ports, cgroup limits) reads the /proc and /sys filesystems and
// degrades to Supported=false with a reason on platforms without them.
package systools
