// Package collector gathers a metrics snapshot from one host over a
// transient SSH connection. Collection never fails loudly: every failure
// mode folds into the snapshot, either as status=offline with a cause or
// as a single degraded field.
package collector

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	scouterrors "github.com/hostscout/hostscout/internal/errors"
	"github.com/hostscout/hostscout/internal/logger"
	"github.com/hostscout/hostscout/internal/registry"
	"github.com/hostscout/hostscout/pkg/sshutil"
)

// Diagnostic commands, executed read-only on the target host. The exact
// strings are part of the contract: their output shapes drive the
// tolerant parsing below.
const (
	// CPU: stripped idle percentage from top, inverted.
	cmdCPUPrimary = `top -bn1 | grep 'Cpu(s)' | sed 's/.*, *\([0-9.]*\)%* id.*/\1/' | awk '{print 100 - $1}'`
	// CPU fallback when top yields no signal: since-boot usage from /proc/stat.
	cmdCPUFallback = `grep 'cpu ' /proc/stat | awk '{usage=($2+$4)*100/($2+$4+$5)} END {printf "%.1f", usage}'`

	cmdMemoryPercent = `free | grep Mem | awk '{printf "%.1f", $3/$2 * 100.0}'`
	cmdMemoryDetails = `free -h | grep Mem | awk '{print $2, $3}'`

	cmdDisk = `df -h / | tail -1 | awk '{print $2, $3, $5}'`

	cmdUptimePrimary  = `uptime -p`
	cmdUptimeFallback = `cat /proc/uptime | awk '{print $1}'`

	cmdLoadAvg = `uptime | awk -F'load average:' '{print $2}'`
)

// Collector opens one connection per collection, runs the diagnostic
// sequence, and closes the connection on every exit path.
type Collector struct {
	dialer  sshutil.Dialer
	timeout time.Duration
	log     logger.Logger
}

// New creates a collector. timeout bounds the SSH connect.
func New(dialer sshutil.Dialer, timeout time.Duration, log logger.Logger) *Collector {
	if log == nil {
		log = logger.Noop()
	}
	return &Collector{dialer: dialer, timeout: timeout, log: log}
}

// Collect gathers a snapshot for host. It never returns an error: a
// connection failure yields status=offline with a populated Error, and a
// single failing command degrades only its own field.
func (c *Collector) Collect(ctx context.Context, host registry.HostRecord) registry.MetricsSnapshot {
	snap := registry.EmptySnapshot(registry.StatusOffline)

	conn, err := c.dialer.Dial(ctx, sshutil.Credentials{
		Address:  host.Address,
		Port:     host.Port,
		Username: host.Username,
		Secret:   host.Secret,
	}, c.timeout)
	if err != nil {
		snap.Error = describeConnectError(err)
		c.log.Debug("host %s unreachable: %v", host.ID, err)
		return snap
	}
	defer conn.Close()

	c.collectCPU(conn, &snap)
	c.collectMemory(conn, &snap)
	c.collectDisk(conn, &snap)
	c.collectUptime(conn, &snap)
	c.collectLoadAvg(conn, &snap)

	snap.Status = registry.StatusOnline
	snap.Error = ""
	return snap
}

// describeConnectError turns a dial failure into the human-readable
// cause stored on an offline snapshot.
func describeConnectError(err error) string {
	var se *scouterrors.Error
	if stderrors.As(err, &se) {
		if se.Code == scouterrors.ErrAuth {
			return "authentication failed: " + se.Message
		}
		return "connection failed: " + se.Message
	}
	return "connection failed: " + err.Error()
}

// collectCPU tries top first; if it yields no signal (zero, empty, or
// unparsable) it falls back to the since-boot /proc/stat calculation.
func (c *Collector) collectCPU(conn sshutil.Conn, snap *registry.MetricsSnapshot) {
	if out, err := conn.RunCommand(cmdCPUPrimary); err == nil {
		if v, perr := strconv.ParseFloat(strings.TrimSpace(out), 64); perr == nil && v > 0 {
			snap.CPUPercent = round1(v)
			return
		}
	}

	out, err := conn.RunCommand(cmdCPUFallback)
	if err != nil {
		c.log.Debug("cpu check failed: %v", err)
		return
	}
	if v, perr := strconv.ParseFloat(strings.TrimSpace(out), 64); perr == nil {
		snap.CPUPercent = round1(v)
	}
}

func (c *Collector) collectMemory(conn sshutil.Conn, snap *registry.MetricsSnapshot) {
	if out, err := conn.RunCommand(cmdMemoryPercent); err == nil {
		if v, perr := strconv.ParseFloat(strings.TrimSpace(out), 64); perr == nil {
			snap.MemoryPercent = round1(v)
		}
	} else {
		c.log.Debug("memory check failed: %v", err)
	}

	out, err := conn.RunCommand(cmdMemoryDetails)
	if err != nil {
		return
	}
	fields := strings.Fields(out)
	if len(fields) >= 2 {
		snap.MemoryTotal = fields[0]
		snap.MemoryUsed = fields[1]
	}
}

func (c *Collector) collectDisk(conn sshutil.Conn, snap *registry.MetricsSnapshot) {
	out, err := conn.RunCommand(cmdDisk)
	if err != nil {
		c.log.Debug("disk check failed: %v", err)
		return
	}
	fields := strings.Fields(out)
	if len(fields) < 3 {
		return
	}
	snap.DiskTotal = fields[0]
	snap.DiskUsed = fields[1]
	if pct, perr := strconv.Atoi(strings.TrimSuffix(fields[2], "%")); perr == nil {
		snap.DiskPercent = pct
	}
}

func (c *Collector) collectUptime(conn sshutil.Conn, snap *registry.MetricsSnapshot) {
	if out, err := conn.RunCommand(cmdUptimePrimary); err == nil {
		if up := strings.TrimSpace(out); up != "" {
			snap.Uptime = strings.TrimPrefix(up, "up ")
			return
		}
	}

	out, err := conn.RunCommand(cmdUptimeFallback)
	if err != nil {
		c.log.Debug("uptime check failed: %v", err)
		return
	}
	secs, perr := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if perr != nil {
		return
	}
	days := int(secs / 86400)
	hours := int(math.Mod(secs, 86400) / 3600)
	minutes := int(math.Mod(secs, 3600) / 60)
	snap.Uptime = fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

func (c *Collector) collectLoadAvg(conn sshutil.Conn, snap *registry.MetricsSnapshot) {
	out, err := conn.RunCommand(cmdLoadAvg)
	if err != nil {
		c.log.Debug("load check failed: %v", err)
		return
	}
	fields := strings.Fields(strings.ReplaceAll(out, ",", " "))
	if len(fields) < 3 {
		return
	}
	var load [3]float64
	for i := 0; i < 3; i++ {
		v, perr := strconv.ParseFloat(fields[i], 64)
		if perr != nil {
			// One bad field invalidates the tuple; keep the default.
			return
		}
		load[i] = v
	}
	snap.LoadAvg = load
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
