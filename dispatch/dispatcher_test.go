package dispatch

import (
	"bytes"
	"errors"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

// chunkReader yields each chunk as one Read, mimicking packetized input.
type chunkReader struct {
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func chunks(ss ...string) *chunkReader {
	r := &chunkReader{}
	for _, s := range ss {
		r.chunks = append(r.chunks, []byte(s))
	}
	return r
}

func TestSessionUnicastDelivery(t *testing.T) {
	listener, addr := newLoopbackListener(t)
	defer listener.Close()

	sess, err := NewSession(Config{Path: "-", Targets: []string{addr}})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	if sess.backup != nil {
		t.Error("backup active without configuration")
	}

	if err := sess.Run(strings.NewReader("hello\n")); err != nil {
		t.Fatal(err)
	}

	got := recvOne(t, listener)
	if string(got) != "hello\n" {
		t.Errorf("datagram = %q, want %q", got, "hello\n")
	}

	snap := sess.Stat().Snapshot()
	if snap.Chunks != 1 || snap.Bytes != 6 {
		t.Errorf("chunks/bytes = %v/%v, want 1/6", snap.Chunks, snap.Bytes)
	}
	if snap.Targets[0].Sent != 1 {
		t.Errorf("target sent = %v, want 1", snap.Targets[0].Sent)
	}
}

func TestSessionSkipsLoneNewline(t *testing.T) {
	listener, addr := newLoopbackListener(t)
	defer listener.Close()

	dir := t.TempDir()
	sess, err := NewSession(Config{Path: "-", Targets: []string{addr}, BackupDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	sess.backup.now = fixedNow("2026-08-29T10:00:00Z", t)

	if err := sess.Run(chunks("a", "\n", "b")); err != nil {
		t.Fatal(err)
	}

	if got := recvOne(t, listener); string(got) != "a" {
		t.Errorf("first datagram = %q, want %q", got, "a")
	}
	if got := recvOne(t, listener); string(got) != "b" {
		t.Errorf("second datagram = %q, want %q", got, "b")
	}

	data, err := ioutil.ReadFile(filepath.Join(dir, "2026-08-29.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ab" {
		t.Errorf("backup = %q, want %q", data, "ab")
	}

	snap := sess.Stat().Snapshot()
	if snap.Skipped != 1 {
		t.Errorf("skipped = %v, want 1", snap.Skipped)
	}
	if snap.BackupWrites != 2 {
		t.Errorf("backup writes = %v, want 2", snap.BackupWrites)
	}
}

func TestSessionMultiByteNewlineNotSkipped(t *testing.T) {
	listener, addr := newLoopbackListener(t)
	defer listener.Close()

	sess, err := NewSession(Config{Path: "-", Targets: []string{addr}})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	if err := sess.Run(chunks("\r\n", "x\n")); err != nil {
		t.Fatal(err)
	}
	if got := recvOne(t, listener); string(got) != "\r\n" {
		t.Errorf("first datagram = %q, want %q", got, "\r\n")
	}
	if got := recvOne(t, listener); string(got) != "x\n" {
		t.Errorf("second datagram = %q, want %q", got, "x\n")
	}
}

func TestSessionFanout(t *testing.T) {
	listener1, addr1 := newLoopbackListener(t)
	defer listener1.Close()
	listener2, addr2 := newLoopbackListener(t)
	defer listener2.Close()

	sess, err := NewSession(Config{Path: "-", Targets: []string{addr1, addr2}})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	payload := "0123456789"
	if err := sess.Run(strings.NewReader(payload)); err != nil {
		t.Fatal(err)
	}

	for i, conn := range []*net.UDPConn{listener1, listener2} {
		if got := recvOne(t, conn); string(got) != payload {
			t.Errorf("listener %d got %q, want %q", i, got, payload)
		}
	}
}

func TestSessionTee(t *testing.T) {
	listener, addr := newLoopbackListener(t)
	defer listener.Close()

	var teed bytes.Buffer
	sess, err := NewSession(Config{Path: "-", Targets: []string{addr}, Tee: true})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	sess.SetOutput(&teed)

	if err := sess.Run(chunks("x1", "\n", "x2")); err != nil {
		t.Fatal(err)
	}

	if teed.String() != "x1x2" {
		t.Errorf("tee output = %q, want %q", teed.String(), "x1x2")
	}
	if snap := sess.Stat().Snapshot(); snap.TeeBytes != 4 {
		t.Errorf("tee bytes = %v, want 4", snap.TeeBytes)
	}
}

func TestSessionSendErrorDoesNotBlockOtherTargets(t *testing.T) {
	listener1, addr1 := newLoopbackListener(t)
	defer listener1.Close()
	listener2, addr2 := newLoopbackListener(t)
	defer listener2.Close()

	sess, err := NewSession(Config{Path: "-", Targets: []string{addr1, addr2}})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	// first downstream goes bad mid-session
	sess.targets[0].Conn.Close()

	if err := sess.Run(strings.NewReader("payload")); err != nil {
		t.Fatalf("send failure stopped the session: %v", err)
	}
	if got := recvOne(t, listener2); string(got) != "payload" {
		t.Errorf("second target got %q, want %q", got, "payload")
	}

	snap := sess.Stat().Snapshot()
	if snap.Targets[0].SendErrors != 1 || snap.Targets[0].Sent != 0 {
		t.Errorf("bad target sent/errors = %v/%v, want 0/1",
			snap.Targets[0].Sent, snap.Targets[0].SendErrors)
	}
	if snap.Targets[1].Sent != 1 || snap.Targets[1].SendErrors != 0 {
		t.Errorf("good target sent/errors = %v/%v, want 1/0",
			snap.Targets[1].Sent, snap.Targets[1].SendErrors)
	}
}

func TestSessionBackupErrorDoesNotBlockDelivery(t *testing.T) {
	listener, addr := newLoopbackListener(t)
	defer listener.Close()

	// a plain file where the backup directory should go makes every write fail
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := ioutil.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	sess, err := NewSession(Config{
		Path:      "-",
		Targets:   []string{addr},
		BackupDir: filepath.Join(blocker, "backup"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	if err := sess.Run(strings.NewReader("payload")); err != nil {
		t.Fatalf("backup failure stopped the session: %v", err)
	}
	if got := recvOne(t, listener); string(got) != "payload" {
		t.Errorf("datagram = %q, want %q", got, "payload")
	}

	snap := sess.Stat().Snapshot()
	if snap.BackupErrors != 1 || snap.BackupWrites != 0 {
		t.Errorf("backup writes/errors = %v/%v, want 0/1",
			snap.BackupWrites, snap.BackupErrors)
	}
	if snap.Targets[0].Sent != 1 {
		t.Errorf("target sent = %v, want 1", snap.Targets[0].Sent)
	}
}

func TestSessionSetupAllOrNothing(t *testing.T) {
	_, addr := newLoopbackListener(t)

	_, err := NewSession(Config{Path: "-", Targets: []string{addr, "bad:address:string"}})
	if err == nil {
		t.Fatal("want setup error with one bad target")
	}
	if k, ok := KindOf(err); !ok || k != ErrAddressResolution {
		t.Errorf("error kind = %v, want %v", k, ErrAddressResolution)
	}
}

func TestSessionReadError(t *testing.T) {
	listener, addr := newLoopbackListener(t)
	defer listener.Close()

	sess, err := NewSession(Config{Path: "-", Targets: []string{addr}})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	err = sess.Run(failingReader{})
	if err == nil {
		t.Fatal("want read error")
	}
	if k, ok := KindOf(err); !ok || k != ErrRead {
		t.Errorf("error kind = %v, want %v", k, ErrRead)
	}
	if !Fatal(err) {
		t.Error("read errors must be fatal")
	}
}

func TestOpenInputStdin(t *testing.T) {
	r, err := OpenInput("-")
	if err != nil {
		t.Fatal(err)
	}
	r.Close()
}

func TestOpenInputMissingFile(t *testing.T) {
	_, err := OpenInput(filepath.Join(t.TempDir(), "no-such-file"))
	if err == nil {
		t.Fatal("want error for missing file")
	}
	if k, ok := KindOf(err); !ok || k != ErrRead {
		t.Errorf("error kind = %v, want %v", k, ErrRead)
	}
}

func TestStatHandler(t *testing.T) {
	listener, addr := newLoopbackListener(t)
	defer listener.Close()

	sess, err := NewSession(Config{Path: "-", Targets: []string{addr}})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	srv := httptest.NewServer(sess.StatHandler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/api/stat")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want 200", res.StatusCode)
	}
	body, _ := ioutil.ReadAll(res.Body)
	if !bytes.Contains(body, []byte(sess.ID())) {
		t.Errorf("stat body %q misses session id %v", body, sess.ID())
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("input broke")
}
