// Package result implements the module-qualified result codes used across
// the IPC core, in place of exceptions or ad-hoc error strings.
package result

import "fmt"

// Module identifies which subsystem raised a Result, mirroring the
// module-qualified result codes of the Horizon error-code space.
type Module uint8

const (
	ModuleKernel Module = iota
	ModuleCmif
	ModuleHipc
	ModuleMitm
	ModuleGfx
	ModuleParcel
)

// Result is a module-qualified 32-bit error code. The zero value is success.
type Result struct {
	Module Module
	Code   uint32
}

func (r Result) Error() string {
	return fmt.Sprintf("result: module=%d code=%d (%s)", r.Module, r.Code, description(r))
}

// Is reports whether err carries the same (module, code) pair as r, so
// callers can use errors.Is(err, result.ErrSessionClosed) etc.
func (r Result) Is(target error) bool {
	other, ok := target.(Result)
	if !ok {
		return false
	}
	return other.Module == r.Module && other.Code == r.Code
}

func make(m Module, code uint32) Result {
	return Result{Module: m, Code: code}
}

// Transport errors.
var (
	ErrInvalidProtocol         = make(ModuleCmif, 1)
	ErrInvalidCommandType      = make(ModuleCmif, 2)
	ErrInvalidDomainCommandType = make(ModuleCmif, 3)
	ErrInvalidCommandRequestId = make(ModuleCmif, 4)
	ErrUnsupportedOperation    = make(ModuleHipc, 5)
	ErrNotImplemented          = make(ModuleHipc, 6)
)

// Object lifecycle errors.
var (
	ErrSignaledServerNotFound = make(ModuleHipc, 10)
	ErrSessionClosed          = make(ModuleKernel, 11)
	ErrDomainNotFound         = make(ModuleHipc, 12)
	ErrObjectIdAlreadyAllocated = make(ModuleHipc, 13)
	ErrAlreadyDomain          = make(ModuleHipc, 14)
	ErrDomainTableFull        = make(ModuleHipc, 15)
	ErrTooManyObjects         = make(ModuleHipc, 16)
)

// Kernel pass-through errors.
var (
	ErrTimedOut  = make(ModuleKernel, 20)
	ErrCancelled = make(ModuleKernel, 21)
)

// Parcel codec errors.
var (
	ErrNotEnoughData = make(ModuleParcel, 1)
	ErrBadType       = make(ModuleParcel, 2)
)

// ErrShouldForwardToSession is not a user-facing error: the dispatcher
// recognizes it as a signal to restore the message buffer and replay the
// request upstream through the MITM forward session.
var ErrShouldForwardToSession = make(ModuleMitm, 30)

// Graphics-buffer-producer status codes (gpu/binder ErrorCode mapping).
var (
	ErrGfxSuccess            = make(ModuleGfx, 0)
	ErrGfxPermissionDenied   = make(ModuleGfx, 1)
	ErrGfxNameNotFound       = make(ModuleGfx, 2)
	ErrGfxWouldBlock         = make(ModuleGfx, 11)
	ErrGfxNoMemory           = make(ModuleGfx, 12)
	ErrGfxAlreadyExists      = make(ModuleGfx, 17)
	ErrGfxNoInit             = make(ModuleGfx, 19)
	ErrGfxBadValue           = make(ModuleGfx, 22)
	ErrGfxDeadObject         = make(ModuleGfx, 32)
	ErrGfxInvalidOperation   = make(ModuleGfx, 38)
	ErrGfxNotEnoughData      = make(ModuleGfx, 61)
	ErrGfxUnknownTransaction = make(ModuleGfx, 74)
	ErrGfxBadIndex           = make(ModuleGfx, 75)
	ErrGfxTimeOut            = make(ModuleGfx, 110)
	ErrGfxFdsNotAllowed      = make(ModuleGfx, 111)
	ErrGfxFailedTransaction  = make(ModuleGfx, 112)
	ErrGfxBadType            = make(ModuleGfx, 113)
	ErrGfxInvalid            = make(ModuleGfx, 114)
)

var descriptions = map[Result]string{
	ErrNotEnoughData:            "parcel: not enough data",
	ErrBadType:                  "parcel: bad type",
	ErrInvalidProtocol:          "invalid protocol",
	ErrInvalidCommandType:       "invalid command type",
	ErrInvalidDomainCommandType: "invalid domain command type",
	ErrInvalidCommandRequestId:  "invalid command request id",
	ErrUnsupportedOperation:     "unsupported operation",
	ErrNotImplemented:           "not implemented",
	ErrSignaledServerNotFound:   "signaled server not found",
	ErrSessionClosed:            "session closed",
	ErrDomainNotFound:           "domain not found",
	ErrObjectIdAlreadyAllocated: "object id already allocated",
	ErrAlreadyDomain:            "already a domain",
	ErrDomainTableFull:          "domain table exhausted",
	ErrTooManyObjects:           "too many objects",
	ErrTimedOut:                 "timed out",
	ErrCancelled:                "cancelled",
	ErrShouldForwardToSession:   "should forward to session",
	ErrGfxPermissionDenied:      "gfx: permission denied",
	ErrGfxNameNotFound:          "gfx: name not found",
	ErrGfxWouldBlock:            "gfx: would block",
	ErrGfxNoMemory:              "gfx: no memory",
	ErrGfxAlreadyExists:         "gfx: already exists",
	ErrGfxNoInit:                "gfx: not initialized",
	ErrGfxBadValue:              "gfx: bad value",
	ErrGfxDeadObject:            "gfx: dead object",
	ErrGfxInvalidOperation:      "gfx: invalid operation",
	ErrGfxNotEnoughData:         "gfx: not enough data",
	ErrGfxUnknownTransaction:    "gfx: unknown transaction",
	ErrGfxBadIndex:              "gfx: bad index",
	ErrGfxTimeOut:               "gfx: timed out",
	ErrGfxFdsNotAllowed:         "gfx: fds not allowed",
	ErrGfxFailedTransaction:     "gfx: failed transaction",
	ErrGfxBadType:               "gfx: bad type",
	ErrGfxInvalid:               "gfx: invalid error code",
}

func description(r Result) string {
	if d, ok := descriptions[r]; ok {
		return d
	}
	return "unknown"
}

// Matches reports whether err is the given Result, unwrapping nothing else
// (Results never wrap another error).
func Matches(err error, want Result) bool {
	r, ok := err.(Result)
	return ok && r == want
}
