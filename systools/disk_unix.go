// Copyright (c) Microsoft. All rights reserved.

//go:build linux || darwin

package systools

import "syscall"

// diskUsage reports usage of the filesystem containing path.
func diskUsage(path string) (map[string]any, bool) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return nil, false
	}

	total := st.Blocks * uint64(st.Bsize)
	free := st.Bavail * uint64(st.Bsize)
	if total == 0 {
		return nil, false
	}
	used := total - free
	return map[string]any{
		"path":    path,
		"total":   total,
		"used":    used,
		"free":    free,
		"percent": 100 * float64(used) / float64(total),
	}, true
}
