// Package registry is the in-memory source of truth for the monitored
// fleet. One mutex covers the whole collection; mutation traffic is low
// (human-driven CRUD plus one scheduler pass per cycle), so the
// coarse-grained lock keeps readers from ever seeing a half-updated
// record. Every read path returns value copies.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/hostscout/hostscout/internal/errors"
	"github.com/hostscout/hostscout/internal/logger"
)

// Registry holds the canonical host records in insertion order.
type Registry struct {
	mu    sync.Mutex
	hosts []HostRecord
	store Store
	log   logger.Logger
}

// New creates a registry backed by store. Pass logger.Noop() to silence it.
func New(store Store, log logger.Logger) *Registry {
	if log == nil {
		log = logger.Noop()
	}
	return &Registry{store: store, log: log}
}

// Load replaces the in-memory fleet with the persisted blob.
// Called once at process start.
func (r *Registry) Load() error {
	hosts, err := r.store.Load()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.hosts = hosts
	r.mu.Unlock()
	r.log.Info("loaded %d hosts", len(hosts))
	return nil
}

// List returns a snapshot of all records in insertion order.
func (r *Registry) List() []HostRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]HostRecord, len(r.hosts))
	copy(out, r.hosts)
	return out
}

// RedactedList returns all records with secrets stripped, for external
// read paths.
func (r *Registry) RedactedList() []HostRecord {
	hosts := r.List()
	for i := range hosts {
		hosts[i] = hosts[i].Redacted()
	}
	return hosts
}

// Get returns a copy of the record with the given id.
func (r *Registry) Get(id string) (HostRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.hosts {
		if h.ID == id {
			return h, true
		}
	}
	return HostRecord{}, false
}

// UpsertMetrics replaces only the metrics and last-check fields of the
// matching record. A miss is a no-op: the host was removed mid-flight
// and its late result is discarded.
func (r *Registry) UpsertMetrics(id string, snap MetricsSnapshot, checkedAt time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.hosts {
		if r.hosts[i].ID == id {
			r.hosts[i].Metrics = snap
			r.hosts[i].LastCheck = checkedAt
			return true
		}
	}
	return false
}

// Add appends a new record and flushes. The id must be unique.
func (r *Registry) Add(rec HostRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.hosts {
		if h.ID == rec.ID {
			return errors.New(errors.ErrHost,
				fmt.Sprintf("Host id %q already exists", rec.ID),
				"Host ids are generated once and never reused")
		}
	}
	r.hosts = append(r.hosts, rec)
	r.flushLocked()
	return nil
}

// Update replaces every field except the id of the matching record,
// then flushes. An empty incoming secret keeps the stored one, so edits
// from redacted views don't wipe credentials.
func (r *Registry) Update(rec HostRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.hosts {
		if r.hosts[i].ID == rec.ID {
			if rec.Secret == "" {
				rec.Secret = r.hosts[i].Secret
			}
			r.hosts[i] = rec
			r.flushLocked()
			return nil
		}
	}
	return errors.New(errors.ErrHost,
		fmt.Sprintf("Host %q not found", rec.ID), "")
}

// Remove deletes the record with the given id and flushes.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.hosts {
		if r.hosts[i].ID == id {
			r.hosts = append(r.hosts[:i], r.hosts[i+1:]...)
			r.flushLocked()
			return nil
		}
	}
	return errors.New(errors.ErrHost,
		fmt.Sprintf("Host %q not found", id), "")
}

// Flush persists the current fleet. Persistence failures are logged and
// swallowed: the in-memory registry stays authoritative.
func (r *Registry) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
}

// Len returns the number of registered hosts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hosts)
}

func (r *Registry) flushLocked() {
	snapshot := make([]HostRecord, len(r.hosts))
	copy(snapshot, r.hosts)
	if err := r.store.Save(snapshot); err != nil {
		r.log.Error("persisting hosts: %v", err)
	}
}
