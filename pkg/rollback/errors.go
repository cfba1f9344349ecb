package rollback

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/kairos-io/rollerderby/pkg/lvm"
)

// Kind classifies failures so callers can tell a typo from a broken volume manager.
type Kind int

const (
	InvalidArgument Kind = iota + 1
	NotFound
	CollaboratorFailure
	IOFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case NotFound:
		return "not found"
	case CollaboratorFailure:
		return "volume manager error"
	case IOFailure:
		return "i/o error"
	default:
		return "unknown error"
	}
}

// Error is returned by every operation in this package.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	ErrNotFound        = &Error{Kind: NotFound}
	ErrCollaborator    = &Error{Kind: CollaboratorFailure}
	ErrIO              = &Error{Kind: IOFailure}
)

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Msg, e.Err.Error())
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// release closes vg and folds a close failure into *errp, so the handle is
// released exactly once on every path.
func release(vg lvm.VolumeGroup, errp *error) {
	cerr := vg.Close()
	if cerr == nil {
		return
	}
	cerr = newError(CollaboratorFailure, cerr, "closing volume group %s", vg.Name())
	if *errp == nil {
		*errp = cerr
		return
	}
	*errp = multierror.Append(*errp, cerr)
}
