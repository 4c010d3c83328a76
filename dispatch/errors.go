package dispatch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a dispatch error so callers can decide which are
// session-fatal (setup, read) and which are recoverable (send, backup).
type ErrorKind int

const (
	// ErrAddressResolution : target address string did not resolve
	ErrAddressResolution ErrorKind = iota
	// ErrBind : socket bind or connect failed
	ErrBind
	// ErrMulticastJoin : multicast group join failed
	ErrMulticastJoin
	// ErrRead : input source failed
	ErrRead
	// ErrSend : datagram send to one target failed
	ErrSend
	// ErrBackupIO : backup directory or file write failed
	ErrBackupIO
)

func (k ErrorKind) String() string {
	switch k {
	case ErrAddressResolution:
		return "address-resolution"
	case ErrBind:
		return "bind"
	case ErrMulticastJoin:
		return "multicast-join"
	case ErrRead:
		return "read"
	case ErrSend:
		return "send"
	case ErrBackupIO:
		return "backup-io"
	}
	return "unknown"
}

// Error wraps a cause with its kind and the address or path it concerns.
type Error struct {
	Kind ErrorKind
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v error, %v, %v", e.Kind, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the ErrorKind of err, if err carries one.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// Fatal reports whether err must abort the session. Setup and read errors
// are fatal; send and backup errors are logged and the stream keeps flowing.
func Fatal(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return true
	}
	switch k {
	case ErrSend, ErrBackupIO:
		return false
	}
	return true
}
