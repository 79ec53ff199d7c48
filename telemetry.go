package toon

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event carries the data a Hook observes at the program points of an
// encode or decode call: start, then either stop or exception.
type Event struct {
	ID       string        // correlation ID, shared by the start/stop/exception events of one call
	Op       string        // "encode" or "decode"
	DataType string        // Go type name of the root value (encode) or "string", the input type (decode start)
	Size     int           // byte length of the TOON text: the rendered output (encode stop) or the input (decode start)
	Duration time.Duration // only meaningful on OnStop and OnException
}

// Hook receives synchronous notifications around an Encode or Decode
// call. Implementations that keep state are responsible for their own
// synchronization: the codec calls a Hook from whatever goroutine invoked
// it, with no locking of its own.
type Hook interface {
	OnStart(event Event)
	OnStop(event Event)
	OnException(event Event, err error)
}

type noopHook struct{}

func (noopHook) OnStart(Event)            {}
func (noopHook) OnStop(Event)             {}
func (noopHook) OnException(Event, error) {}

// defaultHook is the process-wide Hook used whenever an Options struct
// leaves Hook nil. Guarded the same way the teacher's pool package guards
// its injectable default HTTP client: a zero-value-safe noop behind a
// RWMutex, swappable with SetDefaultHook.
var (
	defaultHookOnce sync.Once
	defaultHook     Hook
	defaultHookMu   sync.RWMutex
)

// SetDefaultHook installs the process-wide Hook used by calls that don't
// supply their own. Passing nil restores the no-op default.
func SetDefaultHook(h Hook) {
	defaultHookMu.Lock()
	defer defaultHookMu.Unlock()
	defaultHook = h
}

// GetDefaultHook returns the process-wide Hook, initializing it to a
// no-op on first use.
func GetDefaultHook() Hook {
	defaultHookOnce.Do(func() {
		defaultHookMu.Lock()
		if defaultHook == nil {
			defaultHook = noopHook{}
		}
		defaultHookMu.Unlock()
	})
	defaultHookMu.RLock()
	defer defaultHookMu.RUnlock()
	if defaultHook == nil {
		return noopHook{}
	}
	return defaultHook
}

func resolveHook(h Hook) Hook {
	if h != nil {
		return h
	}
	return GetDefaultHook()
}

func newEventID() string {
	return uuid.NewString()
}
