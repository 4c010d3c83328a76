package dispatch

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
)

type targetCounters struct {
	addr   string
	kind   string
	sent   int64
	bytes  int64
	errors int64
}

// Stat counts what one session has done so far. The dispatch loop writes
// the counters, the stat endpoint reads them, so access is atomic.
type Stat struct {
	sessionID string
	path      string

	chunks       int64
	bytes        int64
	skipped      int64
	backupWrites int64
	backupErrors int64
	teeBytes     int64

	targets []*targetCounters
}

func newStat(sessionID, path string, targets []*Target) *Stat {
	s := &Stat{sessionID: sessionID, path: path}
	for _, t := range targets {
		s.targets = append(s.targets, &targetCounters{
			addr: t.Addr.String(),
			kind: t.Kind(),
		})
	}
	return s
}

func (s *Stat) chunk(n int) {
	atomic.AddInt64(&s.chunks, 1)
	atomic.AddInt64(&s.bytes, int64(n))
}

func (s *Stat) skip()        { atomic.AddInt64(&s.skipped, 1) }
func (s *Stat) backupWrite() { atomic.AddInt64(&s.backupWrites, 1) }
func (s *Stat) backupError() { atomic.AddInt64(&s.backupErrors, 1) }
func (s *Stat) teed(n int)   { atomic.AddInt64(&s.teeBytes, int64(n)) }

func (s *Stat) sent(i, n int) {
	atomic.AddInt64(&s.targets[i].sent, 1)
	atomic.AddInt64(&s.targets[i].bytes, int64(n))
}

func (s *Stat) sendError(i int) {
	atomic.AddInt64(&s.targets[i].errors, 1)
}

// TargetSnapshot is one target's counters at a point in time.
type TargetSnapshot struct {
	Addr       string `json:"addr"`
	Kind       string `json:"kind"`
	Sent       int64  `json:"sent"`
	Bytes      int64  `json:"bytes"`
	SendErrors int64  `json:"send-errors"`
}

// Snapshot is the stat document served by the stat endpoint.
type Snapshot struct {
	SessionID    string           `json:"session-id"`
	Path         string           `json:"path"`
	Chunks       int64            `json:"chunks"`
	Bytes        int64            `json:"bytes"`
	Skipped      int64            `json:"skipped-chunks"`
	BackupWrites int64            `json:"backup-writes"`
	BackupErrors int64            `json:"backup-errors"`
	TeeBytes     int64            `json:"tee-bytes"`
	Targets      []TargetSnapshot `json:"targets"`
}

// Snapshot :
func (s *Stat) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:    s.sessionID,
		Path:         s.path,
		Chunks:       atomic.LoadInt64(&s.chunks),
		Bytes:        atomic.LoadInt64(&s.bytes),
		Skipped:      atomic.LoadInt64(&s.skipped),
		BackupWrites: atomic.LoadInt64(&s.backupWrites),
		BackupErrors: atomic.LoadInt64(&s.backupErrors),
		TeeBytes:     atomic.LoadInt64(&s.teeBytes),
	}
	for _, t := range s.targets {
		snap.Targets = append(snap.Targets, TargetSnapshot{
			Addr:       t.addr,
			Kind:       t.kind,
			Sent:       atomic.LoadInt64(&t.sent),
			Bytes:      atomic.LoadInt64(&t.bytes),
			SendErrors: atomic.LoadInt64(&t.errors),
		})
	}
	return snap
}

// StatHandler serves GET /api/stat with the session's counters.
func (s *Session) StatHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/stat", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.stat.Snapshot()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}).Methods("GET")
	return r
}
