// Copyright (c) Microsoft. All rights reserved.

package systools

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/microsoft/agent-server/go/agentserver"
)

// visibility describes what one class of observation can see.
type visibility struct {
	Supported bool   `json:"supported"`
	Scope     string `json:"scope"`
	Notes     string `json:"notes,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func capabilityReport(ctx context.Context) agentserver.ToolResult {
	procVis := visibility{
		Supported: true,
		Scope:     scope(),
		Notes:     "In containers, you usually only see container processes (PID namespace).",
	}

	netVis := visibility{
		Supported: true,
		Scope:     scope(),
		Notes:     "In containers, ports reflect the container network namespace unless using host networking.",
	}
	if _, err := os.ReadFile("/proc/net/tcp"); err != nil {
		netVis.Supported = false
		netVis.Reason = "net connections not accessible: " + err.Error()
	}

	binaries := make(map[string]bool)
	for _, name := range []string{"nvidia-smi", "ip", "ss", "netstat"} {
		_, err := exec.LookPath(name)
		binaries[strings.ReplaceAll(name, "-", "_")] = err == nil
	}

	return agentserver.ToolResult{
		Supported: true,
		Scope:     scope(),
		Data: map[string]any{
			"os":                 runtime.GOOS,
			"platform":           platformString(),
			"runtime":            runtime.Version(),
			"in_container":       InContainer(),
			"process_visibility": procVis,
			"network_visibility": netVis,
			"cgroup_limits":      cgroupLimits(),
			"optional_binaries":  binaries,
		},
	}
}

func systemInfo(ctx context.Context) agentserver.ToolResult {
	exe, _ := os.Executable()

	data := map[string]any{
		"os":          runtime.GOOS,
		"machine":     runtime.GOARCH,
		"runtime":     runtime.Version(),
		"executable":  exe,
		"cpu_logical": runtime.NumCPU(),
	}
	if release, ok := readFirstExisting("/proc/sys/kernel/osrelease"); ok {
		data["release"] = release
	}
	if version, ok := readFirstExisting("/proc/version"); ok {
		data["version"] = version
	}
	if up, ok := uptimeSeconds(); ok {
		data["uptime_seconds"] = up
	}

	return agentserver.ToolResult{Supported: true, Scope: scope(), Data: data}
}

func platformString() string {
	parts := []string{runtime.GOOS, runtime.GOARCH}
	if release, ok := readFirstExisting("/proc/sys/kernel/osrelease"); ok {
		parts = append(parts, release)
	}
	return strings.Join(parts, "-")
}

func uptimeSeconds() (float64, bool) {
	raw, ok := readFirstExisting("/proc/uptime")
	if !ok {
		return 0, false
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, false
	}
	up, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return up, true
}

type resourceSnapshotArgs struct {
	SampleCPUSeconds float64 `json:"sample_cpu_seconds" jsonschema:"description=Sampling interval for CPU percent,default=0.8"`
}

func resourceSnapshot(ctx context.Context, args resourceSnapshotArgs) (any, error) {
	interval := time.Duration(args.SampleCPUSeconds * float64(time.Second))
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}

	data := map[string]any{
		"cpu_percent": nil,
		"load_avg":    nil,
		"memory":      nil,
		"disk":        nil,
	}

	if cpu, ok := sampleCPUPercent(ctx, interval); ok {
		data["cpu_percent"] = cpu
	}
	if load, ok := loadAverages(); ok {
		data["load_avg"] = load
	}
	if mem, ok := memoryUsage(); ok {
		data["memory"] = mem
	}
	if cwd, err := os.Getwd(); err == nil {
		if disk, ok := diskUsage(cwd); ok {
			data["disk"] = disk
		}
	}

	return agentserver.ToolResult{Supported: true, Scope: scope(), Data: data}, nil
}

// sampleCPUPercent measures aggregate CPU utilization over the interval by
// diffing two /proc/stat readings.
func sampleCPUPercent(ctx context.Context, interval time.Duration) (float64, bool) {
	busy1, total1, ok := readCPUTicks()
	if !ok {
		return 0, false
	}
	select {
	case <-ctx.Done():
		return 0, false
	case <-time.After(interval):
	}
	busy2, total2, ok := readCPUTicks()
	if !ok || total2 <= total1 {
		return 0, false
	}
	pct := 100 * float64(busy2-busy1) / float64(total2-total1)
	return pct, true
}

// readCPUTicks returns busy and total jiffies from the aggregate cpu line.
func readCPUTicks() (busy, total uint64, ok bool) {
	raw, found := readFirstExisting("/proc/stat")
	if !found {
		return 0, 0, false
	}
	line, _, _ := strings.Cut(raw, "\n")
	fields := strings.Fields(line)
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, 0, false
	}
	for i, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		total += v
		// fields 4 and 5 are idle and iowait
		if i != 3 && i != 4 {
			busy += v
		}
	}
	return busy, total, true
}

func loadAverages() ([]float64, bool) {
	raw, ok := readFirstExisting("/proc/loadavg")
	if !ok {
		return nil, false
	}
	fields := strings.Fields(raw)
	if len(fields) < 3 {
		return nil, false
	}
	loads := make([]float64, 0, 3)
	for _, f := range fields[:3] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		loads = append(loads, v)
	}
	return loads, true
}

// memoryUsage reads /proc/meminfo. Values are bytes.
func memoryUsage() (map[string]any, bool) {
	raw, ok := readFirstExisting("/proc/meminfo")
	if !ok {
		return nil, false
	}
	kb := make(map[string]uint64)
	for _, line := range strings.Split(raw, "\n") {
		name, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if v, err := strconv.ParseUint(fields[0], 10, 64); err == nil {
			kb[name] = v
		}
	}

	total, ok := kb["MemTotal"]
	if !ok || total == 0 {
		return nil, false
	}
	avail := kb["MemAvailable"]
	used := total - avail
	return map[string]any{
		"total":     total * 1024,
		"available": avail * 1024,
		"used":      used * 1024,
		"percent":   100 * float64(used) / float64(total),
	}, true
}
