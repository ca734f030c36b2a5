package mainydb

import (
	"errors"
	"fmt"
)

// ErrKind classifies the caller-visible error kinds from spec §7.
type ErrKind int

const (
	KindBadQuery ErrKind = iota
	KindBadUpdate
	KindBadPipeline
	KindDuplicateKey
	KindNotFound
	KindCorruptFile
	KindIoError
	KindCancelled
)

func (k ErrKind) String() string {
	switch k {
	case KindBadQuery:
		return "BadQuery"
	case KindBadUpdate:
		return "BadUpdate"
	case KindBadPipeline:
		return "BadPipeline"
	case KindDuplicateKey:
		return "DuplicateKey"
	case KindNotFound:
		return "NotFound"
	case KindCorruptFile:
		return "CorruptFile"
	case KindIoError:
		return "IoError"
	case KindCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is the concrete error type returned for every caller-visible failure.
// It carries the offending context (collection/index) the way the teacher's
// DataError/TableError carried codec and table context.
type Error struct {
	Kind  ErrKind
	Coll  string
	Index string
	Msg   string
	Err   error
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Coll != "" {
		s += " " + e.Coll
		if e.Index != "" {
			s += "." + e.Index
		}
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Is lets errors.Is(err, ErrDuplicateKey) etc. work against the bare sentinels below.
func (e *Error) Is(target error) bool {
	sk, ok := target.(*sentinelKind)
	return ok && e.Kind == sk.kind
}

type sentinelKind struct{ kind ErrKind }

func (s *sentinelKind) Error() string { return s.kind.String() }

var (
	ErrBadQuery     error = &sentinelKind{KindBadQuery}
	ErrBadUpdate    error = &sentinelKind{KindBadUpdate}
	ErrBadPipeline  error = &sentinelKind{KindBadPipeline}
	ErrDuplicateKey error = &sentinelKind{KindDuplicateKey}
	ErrNotFound     error = &sentinelKind{KindNotFound}
	ErrCorruptFile  error = &sentinelKind{KindCorruptFile}
	ErrIoError      error = &sentinelKind{KindIoError}
	ErrCancelled    error = &sentinelKind{KindCancelled}
)

func errf(kind ErrKind, coll, index string, err error, format string, args ...any) error {
	return &Error{Kind: kind, Coll: coll, Index: index, Msg: fmt.Sprintf(format, args...), Err: err}
}

func badQueryf(format string, args ...any) error    { return errf(KindBadQuery, "", "", nil, format, args...) }
func badUpdatef(format string, args ...any) error    { return errf(KindBadUpdate, "", "", nil, format, args...) }
func badPipelinef(format string, args ...any) error  { return errf(KindBadPipeline, "", "", nil, format, args...) }
func notFoundf(coll, what string) error              { return errf(KindNotFound, coll, "", nil, "%s not found", what) }
func corruptFilef(err error, format string, args ...any) error {
	return errf(KindCorruptFile, "", "", err, format, args...)
}
func ioErrorf(err error, format string, args ...any) error {
	return errf(KindIoError, "", "", err, format, args...)
}
func duplicateKeyf(coll, index string, err error, format string, args ...any) error {
	return errf(KindDuplicateKey, coll, index, err, format, args...)
}
func cancelledf() error { return errf(KindCancelled, "", "", nil, "operation cancelled") }

// KindOf extracts the ErrKind from err, if it (or something it wraps) is one of ours.
func KindOf(err error) (ErrKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
