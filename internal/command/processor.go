package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/nerrad567/gray-logic-modbus/internal/register"
)

// maxLoggedPayload caps how much of a rejected payload is logged.
const maxLoggedPayload = 64

// Processor handles commands for one controllable parameter.
type Processor interface {
	// ID returns a short stable identifier (e.g. "grid_charge").
	ID() string

	// Description returns a one-line human-readable summary.
	Description() string

	// Initialize subscribes HandleCommand to the processor's command topic.
	// Only the first call has an effect.
	Initialize(ctx context.Context) error

	// HandleCommand applies one command payload.
	HandleCommand(topic string, payload []byte) error
}

// Info describes a processor for operational introspection.
type Info struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	TopicSuffix string `json:"topic_suffix"`
	Instance    int    `json:"instance"`
	Group       string `json:"group"`
	Bound       bool   `json:"bound"`

	// Register is the bound definition, nil when unbound.
	Register *register.Definition `json:"register,omitempty"`

	Stats Stats `json:"stats"`
}

// Stats counts command outcomes since startup.
type Stats struct {
	Applied  uint64 `json:"applied"`
	Failed   uint64 `json:"failed"`
	Rejected uint64 `json:"rejected"`
}

// Options holds the collaborators shared by every processor.
type Options struct {
	// Registry holds the active register definitions.
	Registry *register.Registry

	// Subscriber is the message bus client.
	Subscriber Subscriber

	// Writer is the shared Modbus transport.
	Writer RegisterWriter

	// InstanceIndex namespaces every command topic.
	InstanceIndex int

	// Logger is optional. If nil, nothing is logged.
	Logger Logger

	// Recorder is optional. If nil, outcomes are not recorded.
	Recorder Recorder
}

// parameter identifies what a processor controls.
type parameter struct {
	id          string
	description string
	topicSuffix string
	group       string
}

// base implements the command pipeline shared by all processors:
// parse, translate, write. Concrete processors embed it.
type base struct {
	param parameter

	subscriber Subscriber
	writer     RegisterWriter
	recorder   Recorder
	logger     Logger
	instance   int

	// def is nil when binding failed. Never modified after construction.
	def *register.Definition

	ctx   context.Context
	ctxMu sync.RWMutex

	initOnce sync.Once
	initErr  error

	applied  atomic.Uint64
	failed   atomic.Uint64
	rejected atomic.Uint64
}

// init binds a parameter to its register definition.
//
// Binding failures are logged and leave the processor unbound; they are
// not returned. Only missing collaborators are an error.
func (b *base) init(param parameter, opts Options) error {
	if opts.Registry == nil {
		return fmt.Errorf("%w: registry is required", ErrMissingDependency)
	}
	if opts.Subscriber == nil {
		return fmt.Errorf("%w: subscriber is required", ErrMissingDependency)
	}
	if opts.Writer == nil {
		return fmt.Errorf("%w: register writer is required", ErrMissingDependency)
	}

	b.param = param
	b.subscriber = opts.Subscriber
	b.writer = opts.Writer
	b.recorder = opts.Recorder
	b.logger = opts.Logger
	if b.logger == nil {
		b.logger = nopLogger{}
	}
	b.instance = opts.InstanceIndex
	b.ctx = context.Background()

	b.bind(opts.Registry)
	return nil
}

// bind selects the single matching register definition.
func (b *base) bind(registry *register.Registry) {
	matches := registry.Find(b.param.topicSuffix, b.param.group)

	switch len(matches) {
	case 0:
		b.logger.Error("register definition not found, enable capability group "+b.param.group,
			"processor", b.param.id,
			"topic_suffix", b.param.topicSuffix,
			"group", b.param.group)
	case 1:
		b.def = matches[0]
		b.logger.Debug("register definition bound",
			"processor", b.param.id,
			"register", matches[0].Name,
			"address", fmt.Sprintf("0x%04X", matches[0].Address))
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		b.logger.Error("ambiguous register configuration, several definitions match; check enabled capability groups",
			"processor", b.param.id,
			"topic_suffix", b.param.topicSuffix,
			"group", b.param.group,
			"matches", names)
	}
}

// ID implements Processor.
func (b *base) ID() string { return b.param.id }

// Description implements Processor.
func (b *base) Description() string { return b.param.description }

// Bound reports whether a register definition was selected.
func (b *base) Bound() bool { return b.def != nil }

// Info returns the processor's introspection data.
func (b *base) Info() Info {
	return Info{
		ID:          b.param.id,
		Description: b.param.description,
		TopicSuffix: b.param.topicSuffix,
		Instance:    b.instance,
		Group:       b.param.group,
		Bound:       b.def != nil,
		Register:    b.def,
		Stats: Stats{
			Applied:  b.applied.Load(),
			Failed:   b.failed.Load(),
			Rejected: b.rejected.Load(),
		},
	}
}

// Initialize implements Processor.
//
// The processor subscribes even when unbound, so every command for a
// misconfigured parameter produces an error log. ctx is used for the
// register writes of every later command; cancelling it aborts them.
func (b *base) Initialize(ctx context.Context) error {
	b.initOnce.Do(func() {
		b.ctxMu.Lock()
		b.ctx = ctx
		b.ctxMu.Unlock()

		if err := b.subscriber.SubscribeCommandHandler(b.instance, b.param.topicSuffix, b.HandleCommand); err != nil {
			b.initErr = fmt.Errorf("subscribing %s: %w", b.param.id, err)
			return
		}

		b.logger.Info("command processor initialised",
			"processor", b.param.id,
			"instance", b.instance,
			"topic_suffix", b.param.topicSuffix,
			"bound", b.def != nil)
	})
	return b.initErr
}

func (b *base) context() context.Context {
	b.ctxMu.RLock()
	defer b.ctxMu.RUnlock()
	return b.ctx
}

// HandleCommand implements Processor.
//
// Invalid payloads, unbound processors and untranslatable values are
// logged once at error level and dropped; nil is returned. A failed
// register write stops the sequence: earlier writes stay applied, later
// ones are never attempted, and the error is returned wrapping
// ErrWriteFailed.
func (b *base) HandleCommand(topic string, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, b.param.id, r)
		}
	}()

	ctx := b.context()
	rec := Record{
		ProcessorID: b.param.id,
		Instance:    b.instance,
		Topic:       topic,
		Payload:     truncate(string(payload)),
		Timestamp:   time.Now().UTC(),
	}

	value, parseErr := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if parseErr != nil {
		b.logger.Error("invalid command payload",
			"processor", b.param.id,
			"topic", topic,
			"payload", rec.Payload)
		b.rejected.Add(1)
		b.record(ctx, rec, StatusInvalid, parseErr)
		return nil
	}
	rec.Value = value

	if b.def == nil {
		b.logger.Error("command dropped, no register definition bound",
			"processor", b.param.id,
			"group", b.param.group,
			"value", value)
		b.rejected.Add(1)
		b.record(ctx, rec, StatusUnbound, nil)
		return nil
	}

	writes, trErr := b.def.Translate(value)
	if trErr != nil {
		b.logger.Error("command value rejected",
			"processor", b.param.id,
			"value", value,
			"error", trErr)
		b.rejected.Add(1)
		b.record(ctx, rec, StatusRejected, trErr)
		return nil
	}
	rec.Writes = writes

	b.logger.Info("setting "+b.param.id,
		"processor", b.param.id,
		"value", value,
		"unit", b.def.Unit,
		"writes", len(writes))

	for i, w := range writes {
		if werr := b.writer.WriteRegister(ctx, w.Address, w.Value); werr != nil {
			err = fmt.Errorf("%w: %s: write %d/%d at address 0x%04X: %w",
				ErrWriteFailed, b.param.id, i+1, len(writes), w.Address, werr)
			rec.Completed = i
			b.failed.Add(1)
			b.record(ctx, rec, StatusFailed, err)
			return err
		}
		rec.Completed = i + 1
	}

	b.applied.Add(1)
	b.logger.Debug("command applied",
		"processor", b.param.id,
		"value", value,
		"writes", writes)
	b.record(ctx, rec, StatusApplied, nil)

	return nil
}

// record passes the outcome to the optional recorder. Recorder failures
// are logged at warn level and do not affect the command.
func (b *base) record(ctx context.Context, rec Record, status Status, err error) {
	if b.recorder == nil {
		return
	}

	rec.Status = status
	if err != nil {
		rec.Error = err.Error()
	}

	if rerr := b.recorder.RecordCommand(ctx, rec); rerr != nil {
		b.logger.Warn("recording command failed",
			"processor", b.param.id,
			"error", rerr)
	}
}

func truncate(s string) string {
	if len(s) <= maxLoggedPayload {
		return s
	}
	cut := maxLoggedPayload
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
