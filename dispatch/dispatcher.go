package dispatch

import (
	"bufio"
	"io"
	"os"

	"github.com/castisdev/cilog"
	uuid "github.com/satori/go.uuid"
)

// ChunkSize is the most bytes read from the input per iteration; each chunk
// becomes exactly one datagram per target, no framing added.
const ChunkSize = 8096

// Session streams one input source to its targets. One goroutine drives
// the whole loop; only the stat counters are shared.
type Session struct {
	id      string
	cfg     Config
	targets []*Target
	backup  *Backup
	out     io.Writer
	stat    *Stat
}

// NewSession binds every configured target before any data flows. Binding
// is all-or-nothing: on the first failure the already-bound sockets are
// closed and the session is not created.
func NewSession(cfg Config) (*Session, error) {
	id := uuid.NewV4()
	s := &Session{id: id.String(), cfg: cfg, out: os.Stdout}
	for _, addr := range cfg.Targets {
		t, err := NewTarget(addr)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.targets = append(s.targets, t)
		cilog.Infof("[%v] target ready, %v (%v)", s.id, addr, t.Kind())
	}
	if cfg.backupEnabled() {
		s.backup = NewBackup(RotationPolicy{Dir: cfg.BackupDir, RetentionDays: cfg.BackupDays})
	}
	s.stat = newStat(s.id, cfg.Path, s.targets)
	return s, nil
}

// ID :
func (s *Session) ID() string { return s.id }

// Stat :
func (s *Session) Stat() *Stat { return s.stat }

// SetOutput redirects tee output, os.Stdout by default.
func (s *Session) SetOutput(w io.Writer) { s.out = w }

// Close releases every target socket.
func (s *Session) Close() {
	for _, t := range s.targets {
		t.Close()
	}
}

// OpenInput returns the reader for path, "-" meaning standard input.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: ErrRead, Name: path, Err: err}
	}
	return f, nil
}

// Run pumps r until end of input. Per chunk the order is fixed: backup,
// fan-out in target registration order, tee. A chunk of exactly one newline
// byte is dropped everywhere. Send and backup failures are logged and
// counted without stopping the loop; read failures stop it.
func (s *Session) Run(r io.Reader) error {
	out := bufio.NewWriter(s.out)
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.dispatch(buf[:n], out)
		}
		if err == io.EOF || (err == nil && n == 0) {
			cilog.Infof("[%v] end of input, %v", s.id, s.cfg.Path)
			return nil
		}
		if err != nil {
			return &Error{Kind: ErrRead, Name: s.cfg.Path, Err: err}
		}
	}
}

func (s *Session) dispatch(chunk []byte, out *bufio.Writer) {
	if len(chunk) == 1 && chunk[0] == '\n' {
		// blank-line noise, drop entirely
		s.stat.skip()
		return
	}

	// durability before delivery: the backup write precedes every send
	if s.backup != nil {
		if err := s.backup.Write(chunk); err != nil {
			s.stat.backupError()
			cilog.Errorf("[%v] backup failed, %v", s.id, err)
		} else {
			s.stat.backupWrite()
		}
	}

	for i, t := range s.targets {
		if err := t.Send(chunk); err != nil {
			s.stat.sendError(i)
			cilog.Errorf("[%v] send failed, %v", s.id, err)
			continue
		}
		s.stat.sent(i, len(chunk))
	}

	if s.cfg.Tee {
		if _, err := out.Write(chunk); err != nil {
			cilog.Errorf("[%v] tee write failed, %v", s.id, err)
		} else {
			out.Flush()
			s.stat.teed(len(chunk))
		}
	}

	s.stat.chunk(len(chunk))
}
