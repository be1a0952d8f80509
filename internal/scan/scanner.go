package scan

import (
	"context"
	"fmt"
	"sort"

	psnet "github.com/shirou/gopsutil/v4/net"

	"portwatch/internal/classify"
	"portwatch/internal/ports"
	"portwatch/pkg/logging"
)

// listenState is the socket status gopsutil reports for TCP sockets in the
// LISTEN state, on every platform it supports.
const listenState = "LISTEN"

// Scanner enumerates listening TCP sockets and resolves each to its owning
// process. Implementations must never panic; an enumeration failure yields
// an empty list plus the error.
type Scanner interface {
	Scan(ctx context.Context) ([]ports.Record, error)
}

// connectionsFunc matches gopsutil's ConnectionsWithContext signature so
// tests can substitute canned socket tables.
type connectionsFunc func(ctx context.Context, kind string) ([]psnet.ConnectionStat, error)

// SystemScanner is the gopsutil-backed Scanner. It covers IPv4 and IPv6 in
// one enumeration pass and caches process resolution per PID within a scan,
// since name, command line, and user each cost separate OS calls.
type SystemScanner struct {
	connections connectionsFunc
	resolver    Resolver
	classifier  *classify.Classifier
}

// NewSystemScanner builds a scanner against the live OS socket table.
func NewSystemScanner() *SystemScanner {
	return &SystemScanner{
		connections: psnet.ConnectionsWithContext,
		resolver:    NewProcessResolver(),
	}
}

// NewSystemScannerWithResolver builds a scanner with a custom resolver.
func NewSystemScannerWithResolver(resolver Resolver) *SystemScanner {
	s := NewSystemScanner()
	s.resolver = resolver
	return s
}

// SetClassifier installs a classifier with extra keyword tables. Records
// are classified with it instead of the built-in tables alone.
func (s *SystemScanner) SetClassifier(c *classify.Classifier) {
	s.classifier = c
}

// Scan enumerates listening TCP sockets, joins process metadata onto every
// row, collapses dual-stack (port, pid) duplicates, and returns the rows
// sorted ascending by port.
func (s *SystemScanner) Scan(ctx context.Context) ([]ports.Record, error) {
	conns, err := s.connections(ctx, "tcp")
	if err != nil {
		return []ports.Record{}, fmt.Errorf("enumerating tcp sockets: %w", err)
	}

	metaCache := make(map[int32]ProcessMeta)
	seen := make(map[ports.Key]bool)
	records := make([]ports.Record, 0, len(conns))

	for _, c := range conns {
		if c.Status != listenState {
			continue
		}
		if c.Pid <= 0 {
			// Socket with no resolvable owner (usually a permissions
			// boundary); skip the row rather than fabricate a PID.
			logging.Debug("Scanner", "skipping ownerless listener on port %d", c.Laddr.Port)
			continue
		}
		if c.Laddr.Port > 65535 {
			continue
		}

		key := ports.Key{Port: uint16(c.Laddr.Port), PID: c.Pid}
		if seen[key] {
			continue
		}
		seen[key] = true

		meta, ok := metaCache[c.Pid]
		if !ok {
			meta = s.resolver.Resolve(ctx, c.Pid)
			metaCache[c.Pid] = meta
		}

		rec := ports.NewRecord(key.Port, c.Pid, meta.Name, c.Laddr.IP, meta.User, meta.Command)
		if s.classifier != nil {
			rec.Category = s.classifier.Classify(meta.Name)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Port != records[j].Port {
			return records[i].Port < records[j].Port
		}
		return records[i].PID < records[j].PID
	})

	logging.Debug("Scanner", "scan complete: %d listeners, %d unique pids", len(records), len(metaCache))
	return records, nil
}
