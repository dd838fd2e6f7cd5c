// Copyright (c) Microsoft. All rights reserved.

//go:build !linux && !darwin

package systools

// diskUsage is unavailable on this platform.
func diskUsage(path string) (map[string]any, bool) {
	return nil, false
}
