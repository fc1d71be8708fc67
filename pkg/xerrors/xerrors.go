package xerrors

import (
	"errors"
	iofs "io/fs"
	"os"

	"github.com/jacktea/mofs/pkg/native"
)

// Kind classifies mofs errors.
type Kind int

const (
	KindInvalid Kind = iota
	KindNotFound
	KindAlreadyExists
	KindPermission
	KindRange
	KindNotSupported
	KindIO
	KindPlatformNotSupported
	KindClosed
	KindBackend
)

// ErrClosed reports use of a released blob handle.
var ErrClosed = errors.New("blob closed")

// Error wraps an underlying error with additional metadata.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Kind.String()
	if e.Op != "" {
		base = e.Op + ": " + base
	}
	if e.Path != "" {
		base += " " + e.Path
	}
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on a bare kind, e.g. errors.Is(err, xerrors.NotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAlreadyExists:
		return "already exists"
	case KindPermission:
		return "permission denied"
	case KindRange:
		return "invalid range"
	case KindNotSupported:
		return "not supported"
	case KindIO:
		return "i/o error"
	case KindPlatformNotSupported:
		return "platform not supported"
	case KindClosed:
		return "closed"
	case KindBackend:
		return "backend operation failed"
	default:
		return "invalid argument"
	}
}

// Bare kind values for errors.Is checks.
var (
	InvalidArgument        = &Error{Kind: KindInvalid}
	NotFound               = &Error{Kind: KindNotFound}
	AlreadyExists          = &Error{Kind: KindAlreadyExists}
	NotSupported           = &Error{Kind: KindNotSupported}
	IOError                = &Error{Kind: KindIO}
	PlatformNotSupported   = &Error{Kind: KindPlatformNotSupported}
	BackendOperationFailed = &Error{Kind: KindBackend}
)

// Wrap annotates err with the given metadata. If err is nil, Wrap returns nil.
func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// E creates a new error with the provided metadata (no underlying error).
func E(kind Kind, op, path string) error {
	return &Error{Kind: kind, Op: op, Path: path}
}

// Annotate wraps err with op and path, keeping the kind of the cause. Errors
// that already carry a Kind are annotated only if they lack an Op.
func Annotate(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Op != "" {
		return err
	}
	return &Error{Kind: KindOf(err), Op: op, Path: path, Err: err}
}

// KindOf extracts the Kind from err, walking wrapped errors as needed.
func KindOf(err error) Kind {
	if err == nil {
		return KindInvalid
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, native.ErrNotFound),
		errors.Is(err, iofs.ErrNotExist),
		errors.Is(err, os.ErrNotExist):
		return KindNotFound
	case errors.Is(err, native.ErrAlreadyExist),
		errors.Is(err, iofs.ErrExist),
		errors.Is(err, os.ErrExist):
		return KindAlreadyExists
	case errors.Is(err, native.ErrPlatformNotSupported):
		return KindPlatformNotSupported
	case errors.Is(err, native.ErrNotSupported):
		return KindNotSupported
	case errors.Is(err, iofs.ErrPermission),
		errors.Is(err, os.ErrPermission):
		return KindPermission
	case errors.Is(err, native.ErrOutOfRange):
		return KindRange
	case errors.Is(err, iofs.ErrInvalid):
		return KindInvalid
	case errors.Is(err, ErrClosed):
		return KindClosed
	default:
		var pathErr *iofs.PathError
		if errors.As(err, &pathErr) {
			return KindIO
		}
		return KindBackend
	}
}
