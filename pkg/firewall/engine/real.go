package engine

import (
	"github.com/hearthguard/sentryfw/pkg/firewall/model"
	"github.com/hearthguard/sentryfw/pkg/result"
)

// NativeOps is the raw foreign-function surface this package hides. The
// bindings themselves — cgo or syscall calls into the host filtering
// platform — are an external collaborator; RealEngine only adapts
// whatever satisfies this interface onto the Engine contract.
type NativeOps interface {
	Open() (nativeHandle uintptr, err error)
	Close(nativeHandle uintptr) error

	ProviderExists(nativeHandle uintptr, providerKey [16]byte) (bool, error)
	SublayerExists(nativeHandle uintptr, sublayerKey [16]byte) (bool, error)
	AddProvider(nativeHandle uintptr, providerKey [16]byte) error
	DeleteProvider(nativeHandle uintptr, providerKey [16]byte) error
	AddSublayer(nativeHandle uintptr, providerKey, sublayerKey [16]byte) error
	DeleteSublayer(nativeHandle uintptr, sublayerKey [16]byte) error

	EnumerateFilters(nativeHandle uintptr, sublayerKey [16]byte) ([]model.ExistingFilter, error)
	AddFilter(nativeHandle uintptr, sublayerKey [16]byte, f model.CompiledFilter) (uint64, error)
	DeleteFilterByKey(nativeHandle uintptr, key [16]byte) error
	DeleteFilterByID(nativeHandle uintptr, id uint64) error
	FilterExists(nativeHandle uintptr, key [16]byte) (bool, error)

	BeginTransaction(nativeHandle uintptr) (txHandle uintptr, err error)
	CommitTransaction(nativeHandle, txHandle uintptr) error
	AbortTransaction(nativeHandle, txHandle uintptr) error
}

// RealEngine adapts a NativeOps binding onto the Engine interface. It owns
// no kernel state itself; every Handle it hands out wraps exactly one
// native handle for the duration of the caller's use.
type RealEngine struct {
	native      NativeOps
	providerKey [16]byte
	sublayerKey [16]byte
}

// NewReal creates an Engine backed by a NativeOps binding, scoped to this
// system's fixed provider/sublayer identities (model.ProviderKey,
// model.SublayerKey).
func NewReal(native NativeOps) *RealEngine {
	return &RealEngine{
		native:      native,
		providerKey: model.ProviderKey,
		sublayerKey: model.SublayerKey,
	}
}

func wfpErr(op string, err error) *result.Error {
	return result.Wrap(result.CodeWFPError, "engine: "+op+" failed", err)
}

func (e *RealEngine) Open() result.Result[*Handle] {
	nh, err := e.native.Open()
	if err != nil {
		return result.Fail[*Handle](wfpErr("open", err))
	}
	h := &Handle{native: nh, closeFn: func() error { return e.native.Close(nh) }}
	return result.Ok(h)
}

func (e *RealEngine) ProviderExists(h *Handle) result.Result[bool] {
	ok, err := e.native.ProviderExists(h.native, e.providerKey)
	if err != nil {
		return result.Fail[bool](wfpErr("providerExists", err))
	}
	return result.Ok(ok)
}

func (e *RealEngine) SublayerExists(h *Handle) result.Result[bool] {
	ok, err := e.native.SublayerExists(h.native, e.sublayerKey)
	if err != nil {
		return result.Fail[bool](wfpErr("sublayerExists", err))
	}
	return result.Ok(ok)
}

func (e *RealEngine) AddProvider(h *Handle) result.Result[struct{}] {
	if err := e.native.AddProvider(h.native, e.providerKey); err != nil {
		return result.Fail[struct{}](wfpErr("addProvider", err))
	}
	return result.Ok(struct{}{})
}

func (e *RealEngine) DeleteProvider(h *Handle) result.Result[struct{}] {
	if err := e.native.DeleteProvider(h.native, e.providerKey); err != nil {
		return result.Fail[struct{}](wfpErr("deleteProvider", err))
	}
	return result.Ok(struct{}{})
}

func (e *RealEngine) AddSublayer(h *Handle) result.Result[struct{}] {
	if err := e.native.AddSublayer(h.native, e.providerKey, e.sublayerKey); err != nil {
		return result.Fail[struct{}](wfpErr("addSublayer", err))
	}
	return result.Ok(struct{}{})
}

func (e *RealEngine) DeleteSublayer(h *Handle) result.Result[struct{}] {
	if err := e.native.DeleteSublayer(h.native, e.sublayerKey); err != nil {
		return result.Fail[struct{}](wfpErr("deleteSublayer", err))
	}
	return result.Ok(struct{}{})
}

func (e *RealEngine) EnumerateFiltersInSublayer(h *Handle) result.Result[[]model.ExistingFilter] {
	filters, err := e.native.EnumerateFilters(h.native, e.sublayerKey)
	if err != nil {
		return result.Fail[[]model.ExistingFilter](wfpErr("enumerateFilters", err))
	}
	return result.Ok(filters)
}

func (e *RealEngine) AddFilter(h *Handle, f model.CompiledFilter) result.Result[uint64] {
	id, err := e.native.AddFilter(h.native, e.sublayerKey, f)
	if err != nil {
		return result.Fail[uint64](wfpErr("addFilter", err))
	}
	return result.Ok(id)
}

func (e *RealEngine) DeleteFilterByKey(h *Handle, key [16]byte) result.Result[struct{}] {
	if err := e.native.DeleteFilterByKey(h.native, key); err != nil {
		return result.Fail[struct{}](wfpErr("deleteFilterByKey", err))
	}
	return result.Ok(struct{}{})
}

func (e *RealEngine) DeleteFilterByID(h *Handle, id uint64) result.Result[struct{}] {
	if err := e.native.DeleteFilterByID(h.native, id); err != nil {
		return result.Fail[struct{}](wfpErr("deleteFilterById", err))
	}
	return result.Ok(struct{}{})
}

func (e *RealEngine) FilterExists(h *Handle, key [16]byte) result.Result[bool] {
	ok, err := e.native.FilterExists(h.native, key)
	if err != nil {
		return result.Fail[bool](wfpErr("filterExists", err))
	}
	return result.Ok(ok)
}

func (e *RealEngine) Begin(h *Handle) result.Result[*Transaction] {
	txh, err := e.native.BeginTransaction(h.native)
	if err != nil {
		return result.Fail[*Transaction](wfpErr("begin", err))
	}

	tx := &Transaction{
		commitFn: func() *result.Error {
			if err := e.native.CommitTransaction(h.native, txh); err != nil {
				return wfpErr("commit", err)
			}
			return nil
		},
		abortFn: func() *result.Error {
			if err := e.native.AbortTransaction(h.native, txh); err != nil {
				return wfpErr("abort", err)
			}
			return nil
		},
	}
	return result.Ok(tx)
}
