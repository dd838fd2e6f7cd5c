// Copyright (c) Microsoft. All rights reserved.

package systools

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

var containerOnce = sync.OnceValue(detectContainer)

// InContainer reports whether the process appears to run inside a Linux
// container. Detection is best-effort: /.dockerenv plus cgroup hints.
func InContainer() bool {
	return containerOnce()
}

func detectContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	txt := string(data)
	return strings.Contains(txt, "docker") ||
		strings.Contains(txt, "containerd") ||
		strings.Contains(txt, "kubepods")
}

// scope names the visibility boundary of an observation.
func scope() string {
	if InContainer() {
		return "container"
	}
	return "host"
}

// readFirstExisting returns the trimmed contents of the first readable path.
func readFirstExisting(paths ...string) (string, bool) {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		return strings.TrimSpace(string(data)), true
	}
	return "", false
}

// cgroupInfo describes the cgroup resource limits applied to this process.
type cgroupInfo struct {
	Supported bool           `json:"supported"`
	Reason    string         `json:"reason,omitempty"`
	Data      map[string]any `json:"data"`
}

// cgroupLimits reads memory and CPU limits, handling cgroup v2 and v1 layouts.
func cgroupLimits() cgroupInfo {
	if runtime.GOOS != "linux" {
		return cgroupInfo{Supported: false, Reason: "cgroup limits only available on Linux"}
	}

	data := make(map[string]any)

	if memMax, ok := readFirstExisting(
		"/sys/fs/cgroup/memory.max",
		"/sys/fs/cgroup/memory/memory.limit_in_bytes",
	); ok {
		if lim, err := strconv.ParseInt(memMax, 10, 64); err == nil {
			data["memory_limit_bytes"] = lim
			data["memory_limit_human"] = humanBytes(lim)
		} else {
			// cgroup v2 reports "max" for unlimited.
			data["memory_limit_bytes"] = nil
			data["memory_limit_human"] = memMax
		}
	}

	if cpuMax, ok := readFirstExisting(
		"/sys/fs/cgroup/cpu.max",
		"/sys/fs/cgroup/cpu/cpu.cfs_quota_us",
	); ok {
		if quota, period, found := strings.Cut(cpuMax, " "); found {
			// v2 format: "quota period" or "max period".
			q, qErr := strconv.ParseInt(quota, 10, 64)
			p, pErr := strconv.ParseInt(period, 10, 64)
			if qErr == nil {
				data["cpu_quota_us"] = q
			}
			if pErr == nil {
				data["cpu_period_us"] = p
			}
			if qErr == nil && pErr == nil && p > 0 {
				data["cpu_limit_cores"] = float64(q) / float64(p)
			}
		} else if q, err := strconv.ParseInt(cpuMax, 10, 64); err == nil {
			// v1 quota with its period in a sibling file.
			data["cpu_quota_us"] = q
			if periodStr, ok := readFirstExisting("/sys/fs/cgroup/cpu/cpu.cfs_period_us"); ok {
				if p, err := strconv.ParseInt(periodStr, 10, 64); err == nil && p > 0 {
					data["cpu_period_us"] = p
					data["cpu_limit_cores"] = float64(q) / float64(p)
				}
			}
		}
	}

	if len(data) == 0 {
		return cgroupInfo{Supported: true, Data: nil}
	}
	return cgroupInfo{Supported: true, Data: data}
}

func humanBytes(n int64) string {
	return strconv.FormatFloat(float64(n)/(1<<30), 'f', 2, 64) + " GiB"
}
