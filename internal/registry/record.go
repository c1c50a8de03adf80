package registry

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reachability statuses for a metrics snapshot.
const (
	StatusChecking = "checking"
	StatusOnline   = "online"
	StatusOffline  = "offline"
)

// MetricsSnapshot is the most recent resource reading for one host.
// It replaces the previous snapshot wholesale; no history is kept.
//
// Invariant: offline snapshots carry a non-empty Error and zero/default
// numeric fields; online snapshots carry an empty Error.
type MetricsSnapshot struct {
	Status        string     `json:"status"`
	CPUPercent    float64    `json:"cpu_percent"`
	MemoryPercent float64    `json:"memory_percent"`
	MemoryUsed    string     `json:"memory_used"`
	MemoryTotal   string     `json:"memory_total"`
	DiskPercent   int        `json:"disk_percent"`
	DiskUsed      string     `json:"disk_used"`
	DiskTotal     string     `json:"disk_total"`
	Uptime        string     `json:"uptime"`
	LoadAvg       [3]float64 `json:"load_avg"`
	Error         string     `json:"error,omitempty"`
}

// EmptySnapshot returns a snapshot with every field at its degraded
// default and the given status.
func EmptySnapshot(status string) MetricsSnapshot {
	return MetricsSnapshot{
		Status:      status,
		MemoryUsed:  "N/A",
		MemoryTotal: "N/A",
		DiskUsed:    "N/A",
		DiskTotal:   "N/A",
		Uptime:      "N/A",
	}
}

// HostRecord is one monitored host. The registry owns the canonical copy;
// everything handed out is a value copy.
type HostRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	Port        int             `json:"port"`
	Username    string          `json:"username"`
	Secret      string          `json:"secret"`
	Description string          `json:"description"`
	Group       string          `json:"group"`
	Metrics     MetricsSnapshot `json:"metrics"`
	LastCheck   time.Time       `json:"last_check"`
}

// Redacted returns a copy safe for external read paths: the secret is
// stripped and never leaves the process.
func (h HostRecord) Redacted() HostRecord {
	h.Secret = ""
	return h
}

// NewHostID generates a stable host identifier, e.g. "host-3fa85f64".
func NewHostID() string {
	return "host-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
