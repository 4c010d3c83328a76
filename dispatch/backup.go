package dispatch

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const backupDateFormat = "2006-01-02"

// DefaultBackupDir is used when backup is enabled without a directory.
const DefaultBackupDir = "./ais_backup"

// RotationPolicy decides where backup files live and how long they are
// kept. RetentionDays 0 disables the sweep; files then accumulate.
type RotationPolicy struct {
	Dir           string
	RetentionDays int
}

// Backup appends chunks to one date-named file per UTC day and expires
// files older than the retention window.
type Backup struct {
	policy RotationPolicy
	now    func() time.Time
}

// NewBackup :
func NewBackup(policy RotationPolicy) *Backup {
	if policy.Dir == "" {
		policy.Dir = DefaultBackupDir
	}
	return &Backup{policy: policy, now: time.Now}
}

// Write appends one chunk to today's backup file, creating the directory
// and the file as needed, then sweeps if a retention window is set.
func (b *Backup) Write(chunk []byte) error {
	if err := os.MkdirAll(b.policy.Dir, 0755); err != nil {
		return &Error{Kind: ErrBackupIO, Name: b.policy.Dir, Err: err}
	}

	now := b.now().UTC()
	fpath := filepath.Join(b.policy.Dir, now.Format(backupDateFormat)+".log")
	f, err := os.OpenFile(fpath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &Error{Kind: ErrBackupIO, Name: fpath, Err: err}
	}
	_, werr := f.Write(chunk)
	cerr := f.Close()
	if werr != nil {
		return &Error{Kind: ErrBackupIO, Name: fpath, Err: werr}
	}
	if cerr != nil {
		return &Error{Kind: ErrBackupIO, Name: fpath, Err: cerr}
	}

	if b.policy.RetentionDays > 0 {
		b.sweep(now)
	}
	return nil
}

// sweep deletes backup files whose date is strictly older than the
// retention cutoff. Malformed names and failed deletes are ignored; the
// stream must keep flowing no matter what lives in the backup directory.
func (b *Backup) sweep(now time.Time) {
	entries, err := os.ReadDir(b.policy.Dir)
	if err != nil {
		return
	}
	cutoff := now.Add(-time.Duration(b.policy.RetentionDays) * 24 * time.Hour)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".log") || len(name) < len(backupDateFormat) {
			continue
		}
		day, err := time.ParseInLocation(backupDateFormat, name[:len(backupDateFormat)], time.UTC)
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			os.Remove(filepath.Join(b.policy.Dir, name))
		}
	}
}
