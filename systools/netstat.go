// Copyright (c) Microsoft. All rights reserved.

package systools

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/microsoft/agent-server/go/agentserver"
)

type checkPortArgs struct {
	Port     int    `json:"port"     jsonschema:"required,minimum=1,maximum=65535"`
	Protocol string `json:"protocol" jsonschema:"enum=tcp|udp,default=tcp"`
}

// socketEntry is one socket bound to the requested port.
type socketEntry struct {
	Status        string `json:"status,omitempty"`
	LocalAddress  string `json:"local_address"`
	RemoteAddress string `json:"remote_address,omitempty"`
	Family        string `json:"family"`
	Type          string `json:"type"`
}

// tcpStates maps the kernel's socket state codes from /proc/net/tcp.
var tcpStates = map[string]string{
	"01": "ESTABLISHED",
	"02": "SYN_SENT",
	"03": "SYN_RECV",
	"04": "FIN_WAIT1",
	"05": "FIN_WAIT2",
	"06": "TIME_WAIT",
	"07": "CLOSE",
	"08": "CLOSE_WAIT",
	"09": "LAST_ACK",
	"0A": "LISTEN",
	"0B": "CLOSING",
}

func checkPort(ctx context.Context, args checkPortArgs) (any, error) {
	proto := strings.ToLower(args.Protocol)
	if proto == "" {
		proto = "tcp"
	}
	if proto != "tcp" && proto != "udp" {
		return agentserver.ToolResult{
			Supported: false,
			Scope:     scope(),
			Reason:    fmt.Sprintf("unsupported protocol %q (want tcp or udp)", args.Protocol),
		}, nil
	}

	var tables []string
	if proto == "tcp" {
		tables = []string{"/proc/net/tcp", "/proc/net/tcp6"}
	} else {
		tables = []string{"/proc/net/udp", "/proc/net/udp6"}
	}

	var listeners []socketEntry
	var readAny bool
	for _, table := range tables {
		entries, err := parseSocketTable(table, proto, args.Port)
		if err != nil {
			continue
		}
		readAny = true
		listeners = append(listeners, entries...)
	}
	if !readAny {
		return agentserver.ToolResult{
			Supported: false,
			Scope:     scope(),
			Reason:    "Cannot read net connections on this platform",
		}, nil
	}

	return agentserver.ToolResult{
		Supported: true,
		Scope:     scope(),
		Data: map[string]any{
			"port":      args.Port,
			"protocol":  proto,
			"listeners": listeners,
			"count":     len(listeners),
		},
	}, nil
}

// parseSocketTable scans one /proc/net table for sockets on the given port.
func parseSocketTable(path, proto string, port int) ([]socketEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	family := "inet"
	if strings.HasSuffix(path, "6") {
		family = "inet6"
	}
	sockType := "stream"
	if proto == "udp" {
		sockType = "dgram"
	}

	var entries []socketEntry
	lines := strings.Split(string(data), "\n")
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		localIP, localPort, err := parseHexAddr(fields[1])
		if err != nil || localPort != port {
			continue
		}
		remoteIP, remotePort, err := parseHexAddr(fields[2])
		if err != nil {
			continue
		}

		entry := socketEntry{
			LocalAddress: net.JoinHostPort(localIP, strconv.Itoa(localPort)),
			Family:       family,
			Type:         sockType,
		}
		if proto == "tcp" {
			entry.Status = tcpStates[strings.ToUpper(fields[3])]
		}
		if remotePort != 0 {
			entry.RemoteAddress = net.JoinHostPort(remoteIP, strconv.Itoa(remotePort))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseHexAddr decodes the kernel's "HEXIP:HEXPORT" socket address notation.
func parseHexAddr(s string) (ip string, port int, err error) {
	ipHex, portHex, found := strings.Cut(s, ":")
	if !found {
		return "", 0, fmt.Errorf("malformed address %q", s)
	}

	p, err := strconv.ParseInt(portHex, 16, 32)
	if err != nil {
		return "", 0, err
	}

	raw, err := hex.DecodeString(ipHex)
	if err != nil {
		return "", 0, err
	}
	switch len(raw) {
	case 4:
		// IPv4, little-endian within the word.
		addr := net.IPv4(raw[3], raw[2], raw[1], raw[0])
		return addr.String(), int(p), nil
	case 16:
		// IPv6, four little-endian 32-bit groups.
		addr := make(net.IP, 16)
		for i := 0; i < 4; i++ {
			addr[4*i+0] = raw[4*i+3]
			addr[4*i+1] = raw[4*i+2]
			addr[4*i+2] = raw[4*i+1]
			addr[4*i+3] = raw[4*i+0]
		}
		return addr.String(), int(p), nil
	default:
		return "", 0, fmt.Errorf("unexpected address length %d", len(raw))
	}
}

type dnsLookupArgs struct {
	Name       string `json:"name"        jsonschema:"required,description=Hostname to resolve"`
	RecordType string `json:"record_type" jsonschema:"description=Advisory record type; the system resolver returns what it has,default=A"`
}

func dnsLookup(ctx context.Context, args dnsLookupArgs) (any, error) {
	recordType := args.RecordType
	if recordType == "" {
		recordType = "A"
	}

	data := map[string]any{
		"name":        args.Name,
		"record_type": recordType,
		"ips":         []string{},
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, args.Name)
	if err != nil {
		// Resolution failure is a result, not a tool failure.
		return agentserver.ToolResult{
			Supported: true,
			Scope:     scope(),
			Reason:    err.Error(),
			Data:      data,
		}, nil
	}

	sort.Strings(addrs)
	data["ips"] = addrs
	return agentserver.ToolResult{Supported: true, Scope: scope(), Data: data}, nil
}
