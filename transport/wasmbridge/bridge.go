package wasmbridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/errors"
	"github.com/wippyai/platform-channels/runner"
)

// Guest and host ABI names.
const (
	HostModule = "platform"

	exportMemory    = "memory"
	exportAlloc     = "alloc"
	exportOnMessage = "on_message"
	exportOnReply   = "on_reply"

	emptyLen = -1
)

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// Config holds configuration for bridge creation
type Config struct {
	// MemoryLimitPages caps guest memory in 64KB pages. 0 keeps the wazero
	// default.
	MemoryLimitPages uint32

	// Name is the guest module name. Empty instantiates it anonymously.
	Name string
}

// Bridge is the Transport between a host messenger and a guest engine
// compiled to WebAssembly. Every call into the guest runs on one serial
// engine runner; host functions invoked by the guest only copy their
// arguments and post work to it.
type Bridge struct {
	ctx     context.Context
	runtime wazero.Runtime
	guest   api.Module
	engine  *runner.Queue
	log     *zap.Logger

	alloc     api.Function
	onMessage api.Function
	onReply   api.Function

	mu       sync.RWMutex
	receiver pc.Receiver

	closeOnce sync.Once
	closeErr  error
}

// New compiles and instantiates the guest module in wasmBytes, together
// with the host module it imports.
func New(ctx context.Context, wasmBytes []byte, cfg *Config) (*Bridge, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	b := &Bridge{
		ctx:     ctx,
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		engine:  runner.NewSerial(),
		log:     Logger(),
	}

	if err := b.instantiateHost(ctx); err != nil {
		b.shutdown(ctx)
		return nil, err
	}

	compiled, err := b.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		b.shutdown(ctx)
		return nil, fmt.Errorf("compile failed: %w", err)
	}

	modConfig := wazero.NewModuleConfig().WithName("")
	if cfg != nil && cfg.Name != "" {
		modConfig = modConfig.WithName(cfg.Name)
	}
	guest, err := b.runtime.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		b.shutdown(ctx)
		return nil, fmt.Errorf("instantiate failed: %w", err)
	}
	b.guest = guest

	if err := b.bindExports(); err != nil {
		b.shutdown(ctx)
		return nil, err
	}
	return b, nil
}

func (b *Bridge) bindExports() error {
	if b.guest.ExportedMemory(exportMemory) == nil {
		return errors.NotFound(errors.PhaseTransport, "guest export", exportMemory)
	}
	exports := []struct {
		name    string
		params  []api.ValueType
		results []api.ValueType
		dst     *api.Function
	}{
		{exportAlloc, []api.ValueType{i32}, []api.ValueType{i32}, &b.alloc},
		{exportOnMessage, []api.ValueType{i32, i32, i32, i32, i64}, nil, &b.onMessage},
		{exportOnReply, []api.ValueType{i64, i32, i32}, nil, &b.onReply},
	}
	for _, e := range exports {
		fn := b.guest.ExportedFunction(e.name)
		if fn == nil {
			return errors.NotFound(errors.PhaseTransport, "guest export", e.name)
		}
		def := fn.Definition()
		if !sameTypes(def.ParamTypes(), e.params) || !sameTypes(def.ResultTypes(), e.results) {
			return errors.New(errors.PhaseTransport, errors.KindInvalidInput).
				Detail("guest export %s has signature %v -> %v", e.name, def.ParamTypes(), def.ResultTypes()).
				Build()
		}
		*e.dst = fn
	}
	return nil
}

func (b *Bridge) instantiateHost(ctx context.Context) error {
	builder := b.runtime.NewHostModuleBuilder(HostModule)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(b.hostSend),
			[]api.ValueType{i32, i32, i32, i32, i64}, nil).
		WithParameterNames("channel_ptr", "channel_len", "data_ptr", "data_len", "reply_id").
		Export("send")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(b.hostReply),
			[]api.ValueType{i64, i32, i32}, nil).
		WithParameterNames("reply_id", "data_ptr", "data_len").
		Export("reply")

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("instantiate host module: %w", err)
	}
	return nil
}

// Attach sets the receiver guest traffic is delivered into.
func (b *Bridge) Attach(r pc.Receiver) {
	b.mu.Lock()
	b.receiver = r
	b.mu.Unlock()
}

func (b *Bridge) target() pc.Receiver {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.receiver
}

// Send delivers a host message to the guest's on_message export. The call
// happens on the engine runner; Send itself never blocks on the guest.
func (b *Bridge) Send(channel string, payload []byte, id pc.ReplyID) error {
	message := clone(payload)
	if !b.engine.Post(func() {
		if err := b.callOnMessage(channel, message, id); err != nil {
			b.log.Warn("guest on_message failed",
				zap.String("channel", channel),
				zap.Int64("reply_id", int64(id)),
				zap.Error(err))
		}
	}) {
		return errors.Closed(errors.PhaseTransport, "wasm bridge")
	}
	return nil
}

// Do runs fn on the engine runner with the guest module and waits for it.
func (b *Bridge) Do(ctx context.Context, fn func(ctx context.Context, guest api.Module) error) error {
	done := make(chan error, 1)
	if !b.engine.Post(func() { done <- fn(b.ctx, b.guest) }) {
		return errors.Closed(errors.PhaseTransport, "wasm bridge")
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) callOnMessage(channel string, message []byte, id pc.ReplyID) error {
	chPtr, chLen, err := b.write([]byte(channel))
	if err != nil {
		return err
	}
	dataPtr, dataLen, err := b.write(message)
	if err != nil {
		return err
	}
	_, err = b.onMessage.Call(b.ctx,
		api.EncodeU32(chPtr), api.EncodeI32(chLen),
		api.EncodeU32(dataPtr), api.EncodeI32(dataLen),
		api.EncodeI64(int64(id)))
	return err
}

func (b *Bridge) callOnReply(id int64, answer []byte) error {
	ptr, n := uint32(0), int32(emptyLen)
	if len(answer) > 0 {
		var err error
		ptr, n, err = b.write(answer)
		if err != nil {
			return err
		}
	}
	_, err := b.onReply.Call(b.ctx, api.EncodeI64(id), api.EncodeU32(ptr), api.EncodeI32(n))
	return err
}

// write copies data into memory obtained from the guest's alloc export.
func (b *Bridge) write(data []byte) (uint32, int32, error) {
	if len(data) == 0 {
		return 0, 0, nil
	}
	res, err := b.alloc.Call(b.ctx, api.EncodeI32(int32(len(data))))
	if err != nil {
		return 0, 0, fmt.Errorf("guest alloc: %w", err)
	}
	ptr := api.DecodeU32(res[0])
	if !b.guest.Memory().Write(ptr, data) {
		return 0, 0, errors.New(errors.PhaseTransport, errors.KindOutOfRange).
			Offset(int(ptr)).
			Detail("guest alloc returned %d for %d bytes outside memory", ptr, len(data)).
			Build()
	}
	return ptr, int32(len(data)), nil
}

// hostSend implements platform.send. The guest's message is copied out of
// its memory and dispatched on the engine runner once the current guest
// call returns.
func (b *Bridge) hostSend(_ context.Context, mod api.Module, stack []uint64) {
	chPtr, chLen := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	dataPtr, dataLen := api.DecodeU32(stack[2]), api.DecodeI32(stack[3])
	guestID := int64(stack[4])

	channel, ok := read(mod, chPtr, int32(chLen))
	if !ok {
		b.log.Warn("guest send with channel outside memory", zap.Uint32("ptr", chPtr), zap.Uint32("len", chLen))
		if guestID != 0 {
			b.replyToGuest("", guestID, nil)
		}
		return
	}
	message, ok := read(mod, dataPtr, dataLen)
	if !ok {
		b.log.Warn("guest send with payload outside memory", zap.Uint32("ptr", dataPtr), zap.Int32("len", dataLen))
		if guestID != 0 {
			b.replyToGuest(string(channel), guestID, nil)
		}
		return
	}

	name := string(channel)
	b.engine.Post(func() {
		r := b.target()
		if r == nil {
			b.log.Warn("guest message before a receiver was attached", zap.String("channel", name))
			if guestID != 0 {
				b.replyToGuest(name, guestID, nil)
			}
			return
		}
		var reply pc.BinaryReply
		if guestID != 0 {
			reply = func(answer []byte) {
				b.replyToGuest(name, guestID, clone(answer))
			}
		}
		r.Dispatch(name, message, reply)
	})
}

func (b *Bridge) replyToGuest(channel string, id int64, answer []byte) {
	b.engine.Post(func() {
		if err := b.callOnReply(id, answer); err != nil {
			b.log.Warn("guest on_reply failed",
				zap.String("channel", channel),
				zap.Int64("reply_id", id),
				zap.Error(err))
		}
	})
}

// hostReply implements platform.reply: the guest answers a host message.
func (b *Bridge) hostReply(_ context.Context, mod api.Module, stack []uint64) {
	id := pc.ReplyID(int64(stack[0]))
	dataPtr, dataLen := api.DecodeU32(stack[1]), api.DecodeI32(stack[2])

	answer, ok := read(mod, dataPtr, dataLen)
	if !ok {
		b.log.Warn("guest reply outside memory", zap.Int64("reply_id", int64(id)))
		answer = nil
	}
	b.engine.Post(func() {
		if r := b.target(); r != nil {
			r.HandleReply(id, answer)
		}
	})
}

// Close drains the engine runner and closes the wazero runtime.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.shutdown(b.ctx)
	})
	return b.closeErr
}

func (b *Bridge) shutdown(ctx context.Context) error {
	_ = b.engine.Close()
	return b.runtime.Close(ctx)
}

// read copies n bytes at ptr out of the guest's memory. A length of -1
// reads as an empty payload.
func read(mod api.Module, ptr uint32, n int32) ([]byte, bool) {
	if n == emptyLen || n == 0 {
		return nil, true
	}
	if n < 0 {
		return nil, false
	}
	view, ok := mod.Memory().Read(ptr, uint32(n))
	if !ok {
		return nil, false
	}
	return clone(view), true
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
