// Copyright (c) Microsoft. All rights reserved.

package systools

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strconv"
	"strings"

	"github.com/microsoft/agent-server/go/agentserver"
)

type listProcessesArgs struct {
	Limit     int    `json:"limit"      jsonschema:"minimum=1,maximum=200,default=30"`
	NameRegex string `json:"name_regex" jsonschema:"description=Regex to filter by process name"`
}

// processRow is one entry in a process listing.
type processRow struct {
	PID           int     `json:"pid"`
	Name          string  `json:"name"`
	Username      string  `json:"username,omitempty"`
	Status        string  `json:"status,omitempty"`
	MemoryPercent float64 `json:"memory_percent,omitempty"`
	Cmdline       string  `json:"cmdline,omitempty"`
}

func listProcesses(ctx context.Context, args listProcessesArgs) (any, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = 30
	}

	var nameRE *regexp.Regexp
	if args.NameRegex != "" {
		re, err := regexp.Compile("(?i)" + args.NameRegex)
		if err != nil {
			return agentserver.ToolResult{
				Supported: false,
				Scope:     scope(),
				Reason:    fmt.Sprintf("invalid name_regex: %v", err),
			}, nil
		}
		nameRE = re
	}

	pids, err := visiblePIDs()
	if err != nil {
		return agentserver.ToolResult{
			Supported: false,
			Scope:     scope(),
			Reason:    "cannot enumerate processes: " + err.Error(),
		}, nil
	}

	memTotal := memTotalBytes()
	rows := make([]processRow, 0, limit)
	for _, pid := range pids {
		st, err := readProcStatus(pid)
		if err != nil {
			// Process exited between listing and reading; skip.
			continue
		}
		if nameRE != nil && !nameRE.MatchString(st.name) {
			continue
		}
		row := processRow{
			PID:      pid,
			Name:     st.name,
			Username: usernameForUID(st.uid),
			Status:   st.state,
			Cmdline:  readCmdline(pid),
		}
		if memTotal > 0 {
			row.MemoryPercent = 100 * float64(st.rssBytes) / float64(memTotal)
		}
		rows = append(rows, row)
		if len(rows) >= limit {
			break
		}
	}

	filter := map[string]any{"name_regex": nil}
	if args.NameRegex != "" {
		filter["name_regex"] = args.NameRegex
	}
	return agentserver.ToolResult{
		Supported: true,
		Scope:     scope(),
		Data: map[string]any{
			"processes": rows,
			"limit":     limit,
			"filter":    filter,
		},
	}, nil
}

type processDetailsArgs struct {
	PID int `json:"pid" jsonschema:"required,minimum=1"`
}

func processDetails(ctx context.Context, args processDetailsArgs) (any, error) {
	st, err := readProcStatus(args.PID)
	if err != nil {
		reason := "No such process"
		if !os.IsNotExist(err) {
			reason = "Access denied: " + err.Error()
		}
		return agentserver.ToolResult{
			Supported: false,
			Scope:     scope(),
			Reason:    reason,
		}, nil
	}

	data := map[string]any{
		"pid":         args.PID,
		"name":        st.name,
		"status":      st.state,
		"username":    usernameForUID(st.uid),
		"ppid":        st.ppid,
		"cmdline":     readCmdline(args.PID),
		"num_threads": st.threads,
		"memory_info": map[string]any{
			"rss": st.rssBytes,
			"vms": st.vmBytes,
		},
	}
	if total := memTotalBytes(); total > 0 {
		data["memory_percent"] = 100 * float64(st.rssBytes) / float64(total)
	}

	children := make([]map[string]any, 0)
	if pids, err := visiblePIDs(); err == nil {
		for _, pid := range pids {
			cs, err := readProcStatus(pid)
			if err != nil || cs.ppid != args.PID {
				continue
			}
			children = append(children, map[string]any{"pid": pid, "name": cs.name})
		}
	}
	data["children"] = children

	return agentserver.ToolResult{Supported: true, Scope: scope(), Data: data}, nil
}

// procStatus holds the fields parsed from /proc/<pid>/status.
type procStatus struct {
	name     string
	state    string
	ppid     int
	uid      string
	threads  int
	rssBytes uint64
	vmBytes  uint64
}

func readProcStatus(pid int) (*procStatus, error) {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return nil, err
	}

	st := &procStatus{}
	for _, line := range strings.Split(string(data), "\n") {
		key, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value := strings.TrimSpace(rest)
		switch key {
		case "Name":
			st.name = value
		case "State":
			st.state = value
		case "PPid":
			st.ppid, _ = strconv.Atoi(value)
		case "Uid":
			// real, effective, saved, filesystem; report the real UID
			if fields := strings.Fields(value); len(fields) > 0 {
				st.uid = fields[0]
			}
		case "Threads":
			st.threads, _ = strconv.Atoi(value)
		case "VmRSS":
			st.rssBytes = parseKBField(value)
		case "VmSize":
			st.vmBytes = parseKBField(value)
		}
	}
	return st, nil
}

func parseKBField(value string) uint64 {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0
	}
	kb, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0
	}
	return kb * 1024
}

func readCmdline(pid int) string {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/cmdline")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(string(data), "\x00", " "))
}

// visiblePIDs lists numeric entries under /proc, i.e. processes in the
// current PID namespace.
func visiblePIDs() ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

func usernameForUID(uid string) string {
	if uid == "" {
		return ""
	}
	u, err := user.LookupId(uid)
	if err != nil {
		return uid
	}
	return u.Username
}

func memTotalBytes() uint64 {
	raw, ok := readFirstExisting("/proc/meminfo")
	if !ok {
		return 0
	}
	for _, line := range strings.Split(raw, "\n") {
		if rest, found := strings.CutPrefix(line, "MemTotal:"); found {
			return parseKBField(rest)
		}
	}
	return 0
}
