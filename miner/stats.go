package miner

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"detection-api/logging"

	"golang.org/x/exp/maps"
)

// UnknownSender is the bucket for requests that arrive without a hotkey,
// UID or origin address.
const UnknownSender = "unknown"

// RequestStats tracks who is querying this miner. Counters are bumped on
// every challenge and snapshotted for the admin surface, periodic log
// summaries and JSON exports.
type RequestStats struct {
	mu sync.Mutex

	startTime time.Time
	total     int64
	byHotkey  map[string]int64
	byUid     map[string]int64
	byIp      map[string]int64
}

func NewRequestStats() *RequestStats {
	return &RequestStats{
		startTime: time.Now(),
		byHotkey:  make(map[string]int64),
		byUid:     make(map[string]int64),
		byIp:      make(map[string]int64),
	}
}

// Record bumps the counters for one challenge. Empty identifiers land in the
// unknown bucket.
func (s *RequestStats) Record(hotkey, uidKey, ip string) {
	if hotkey == "" {
		hotkey = UnknownSender
	}
	if uidKey == "" {
		uidKey = UnknownSender
	}
	if ip == "" {
		ip = UnknownSender
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.byHotkey[hotkey]++
	s.byUid[uidKey]++
	s.byIp[ip]++
}

// StatsSnapshot is a point-in-time copy of the request counters, shaped for
// JSON export and the admin stats endpoint.
type StatsSnapshot struct {
	Timestamp       string           `json:"timestamp"`
	UptimeSeconds   float64          `json:"uptime_seconds"`
	UptimeHours     float64          `json:"uptime_hours"`
	TotalRequests   int64            `json:"total_requests"`
	RequestsPerHour float64          `json:"requests_per_hour"`
	UniqueHotkeys   int              `json:"unique_hotkeys"`
	UniqueUids      int              `json:"unique_uids"`
	UniqueIps       int              `json:"unique_ips"`
	ByHotkey        map[string]int64 `json:"requests_by_hotkey"`
	ByUid           map[string]int64 `json:"requests_by_uid"`
	ByIp            map[string]int64 `json:"requests_by_ip"`
}

// SenderCount pairs a hotkey with how many challenges it sent.
type SenderCount struct {
	Hotkey string `json:"hotkey"`
	Count  int64  `json:"count"`
}

// Snapshot copies the counters under the lock and derives the uptime rates.
func (s *RequestStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	uptime := time.Since(s.startTime)
	snapshot := StatsSnapshot{
		Timestamp:     time.Now().Format(time.RFC3339),
		UptimeSeconds: uptime.Seconds(),
		UptimeHours:   uptime.Hours(),
		TotalRequests: s.total,
		UniqueHotkeys: len(s.byHotkey),
		UniqueUids:    len(s.byUid),
		UniqueIps:     len(s.byIp),
		ByHotkey:      make(map[string]int64, len(s.byHotkey)),
		ByUid:         make(map[string]int64, len(s.byUid)),
		ByIp:          make(map[string]int64, len(s.byIp)),
	}
	if snapshot.UptimeHours > 0 {
		snapshot.RequestsPerHour = float64(s.total) / snapshot.UptimeHours
	}
	for hotkey, count := range s.byHotkey {
		snapshot.ByHotkey[hotkey] = count
	}
	for uid, count := range s.byUid {
		snapshot.ByUid[uid] = count
	}
	for ip, count := range s.byIp {
		snapshot.ByIp[ip] = count
	}
	return snapshot
}

// TopSenders returns up to n hotkeys ordered by request count, heaviest
// first. Ties break by hotkey so the order is stable.
func (s StatsSnapshot) TopSenders(n int) []SenderCount {
	hotkeys := maps.Keys(s.ByHotkey)
	sort.Slice(hotkeys, func(i, j int) bool {
		if s.ByHotkey[hotkeys[i]] != s.ByHotkey[hotkeys[j]] {
			return s.ByHotkey[hotkeys[i]] > s.ByHotkey[hotkeys[j]]
		}
		return hotkeys[i] < hotkeys[j]
	})
	if len(hotkeys) > n {
		hotkeys = hotkeys[:n]
	}

	top := make([]SenderCount, len(hotkeys))
	for i, hotkey := range hotkeys {
		top[i] = SenderCount{Hotkey: hotkey, Count: s.ByHotkey[hotkey]}
	}
	return top
}

// LogSummary writes the counters and the five heaviest senders to the log.
func (s *RequestStats) LogSummary() {
	snapshot := s.Snapshot()
	logging.Info("Request statistics", logging.Miners,
		"uptimeHours", snapshot.UptimeHours,
		"totalRequests", snapshot.TotalRequests,
		"requestsPerHour", snapshot.RequestsPerHour,
		"uniqueHotkeys", snapshot.UniqueHotkeys,
		"uniqueUids", snapshot.UniqueUids,
		"uniqueIps", snapshot.UniqueIps)
	for _, sender := range snapshot.TopSenders(5) {
		logging.Info("Top sender", logging.Miners, "hotkey", sender.Hotkey, "requests", sender.Count)
	}
}

// ExportToFile writes the snapshot as indented JSON. An empty filename gets
// a timestamped default in the working directory.
func (s *RequestStats) ExportToFile(filename string) error {
	if filename == "" {
		filename = fmt.Sprintf("request_stats_%s.json", time.Now().Format("20060102_150405"))
	}

	snapshot := s.Snapshot()
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal request stats: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write request stats: %w", err)
	}

	logging.Info("Request statistics exported", logging.Miners, "filename", filename)
	return nil
}
