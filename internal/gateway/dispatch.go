// internal/gateway/dispatch.go
package gateway

import (
	"context"
	"fmt"
	"sort"
	"time"

	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/common/observability"
	"subscription-ledger/internal/ledger/callctx"
	"subscription-ledger/internal/ledger/codec"
)

// OperationFunc executes one ledger operation: decode the argument
// buffer, act, return the result buffer. An empty result buffer means
// not found; faults are returned as errors.
type OperationFunc func(ctx context.Context, call callctx.Call, args *codec.Args) ([]byte, error)

// ErrUnknownOperation is wrapped around unregistered operation names.
var ErrUnknownOperation = fmt.Errorf("unknown operation")

// Dispatcher routes named operations to their handlers.
type Dispatcher struct {
	ops map[string]OperationFunc
	obs *observability.Observability
	log logger.Logger
}

func NewDispatcher(log logger.Logger) *Dispatcher {
	return &Dispatcher{
		ops: make(map[string]OperationFunc),
		log: log,
	}
}

// WithObservability records per-operation counters and latency.
func (d *Dispatcher) WithObservability(obs *observability.Observability) *Dispatcher {
	d.obs = obs
	return d
}

// Register binds an operation name. Later registrations with the same
// name win; registration happens once at startup.
func (d *Dispatcher) Register(name string, fn OperationFunc) {
	d.ops[name] = fn
}

// Dispatch runs the named operation against an argument buffer.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, call callctx.Call, buf []byte) ([]byte, error) {
	fn, ok := d.ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}

	start := time.Now()
	result, err := fn(ctx, call, codec.NewArgs(buf))
	if d.obs != nil {
		status := "ok"
		if err != nil {
			status = "fault"
		}
		d.obs.RecordCall(ctx, name, status)
		d.obs.RecordCallDuration(ctx, time.Since(start), name)
	}
	return result, err
}

// Operations lists registered operation names, sorted.
func (d *Dispatcher) Operations() []string {
	names := make([]string, 0, len(d.ops))
	for name := range d.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
