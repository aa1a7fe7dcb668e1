// quota.go - Per-client daily transfer accounting.
//
// The store keeps one byte counter per client address, all stamped with a
// single shared creation date. On any access, if the stamp no longer matches
// the current date, every counter is discarded and the stamp moves forward
// (lazy reset at the midnight boundary). The whole snapshot is read and
// rewritten on every mutation through a QuotaPersistence collaborator.
//
// This is single-writer accounting: concurrent processes sharing one snapshot
// are not supported. Within the process a mutex serializes the
// read-modify-write cycle.
package server

import (
	"encoding/json"
	"sync"
	"time"
)

const quotaDateFormat = "2006-01-02"

// quotaSnapshot is the persisted accounting structure.
type quotaSnapshot struct {
	HostsInfo quotaHostsInfo `json:"hosts_info"`
}

type quotaHostsInfo struct {
	DateCreated string               `json:"date_created"`
	Hosts       map[string]hostUsage `json:"hosts"`
}

type hostUsage struct {
	UsedSize int64 `json:"used_size"`
}

// valid reports whether a decoded snapshot carries the fields the store
// relies on. A snapshot that fails this check is thrown away and replaced
// with an empty one; availability wins over retention for this data.
func (s *quotaSnapshot) valid() bool {
	if s.HostsInfo.DateCreated == "" || s.HostsInfo.Hosts == nil {
		return false
	}
	if _, err := time.Parse(quotaDateFormat, s.HostsInfo.DateCreated); err != nil {
		return false
	}
	for _, h := range s.HostsInfo.Hosts {
		if h.UsedSize < 0 {
			return false
		}
	}
	return true
}

// QuotaStore tracks bytes transferred per client for the current day.
type QuotaStore struct {
	mu      sync.Mutex
	persist QuotaPersistence

	now func() time.Time // overridable in tests
}

// NewQuotaStore returns a store backed by the given persistence collaborator.
func NewQuotaStore(persist QuotaPersistence) *QuotaStore {
	return &QuotaStore{persist: persist, now: time.Now}
}

// emptySnapshot returns a fresh snapshot stamped with the current date.
func (q *QuotaStore) emptySnapshot() quotaSnapshot {
	return quotaSnapshot{
		HostsInfo: quotaHostsInfo{
			DateCreated: q.now().Format(quotaDateFormat),
			Hosts:       make(map[string]hostUsage),
		},
	}
}

// load reads the persisted snapshot, repairing corruption and applying the
// lazy date rollover before returning it. Callers must hold q.mu.
func (q *QuotaStore) load() quotaSnapshot {
	data, err := q.persist.Load()
	if err != nil || len(data) == 0 {
		snap := q.emptySnapshot()
		q.save(snap)
		return snap
	}

	var snap quotaSnapshot
	if err := json.Unmarshal(data, &snap); err != nil || !snap.valid() {
		Warn("quota snapshot invalid, reinitializing", nil)
		snap = q.emptySnapshot()
		q.save(snap)
		return snap
	}

	if snap.HostsInfo.DateCreated != q.now().Format(quotaDateFormat) {
		snap = q.emptySnapshot()
		q.save(snap)
	}
	return snap
}

// save persists the snapshot. Callers must hold q.mu.
func (q *QuotaStore) save(snap quotaSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		Error("quota snapshot marshal failed", nil, err)
		return
	}
	if err := q.persist.Save(data); err != nil {
		Error("quota snapshot save failed", nil, err)
	}
}

// UsedBytes returns the bytes the client has transferred today, 0 if the
// client has no record.
func (q *QuotaStore) UsedBytes(client string) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := q.load()
	return snap.HostsInfo.Hosts[client].UsedSize
}

// AddUsage adds delta bytes to the client's counter, creating the record if
// absent. Negative deltas are ignored; there are no refunds.
func (q *QuotaStore) AddUsage(client string, delta int64) {
	if delta < 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := q.load()
	h := snap.HostsInfo.Hosts[client]
	h.UsedSize += delta
	snap.HostsInfo.Hosts[client] = h
	q.save(snap)
}

// Reset discards all accounting immediately.
func (q *QuotaStore) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.save(q.emptySnapshot())
}
