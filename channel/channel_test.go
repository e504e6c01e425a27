package channel

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/codec"
	"github.com/wippyai/platform-channels/messenger"
	"github.com/wippyai/platform-channels/transport/loopback"
)

func connect(t *testing.T) (host, engine *messenger.Messenger) {
	t.Helper()
	a, b := loopback.NewPair()
	host, err := messenger.New(a)
	require.NoError(t, err)
	engine, err = messenger.New(b)
	require.NoError(t, err)
	a.Attach(host)
	b.Attach(engine)
	t.Cleanup(func() {
		_ = host.Close()
		_ = engine.Close()
	})
	return host, engine
}

func TestMethodChannelInvoke(t *testing.T) {
	host, engine := connect(t)

	server := NewMethodChannel(engine, "battery", nil)
	server.SetMethodCallHandler(func(call codec.MethodCall, result MethodResult) {
		switch call.Method {
		case "getLevel":
			result.Success(codec.Int32(87))
		case "fail":
			result.Error("UNAVAILABLE", "no battery", codec.MapOf(codec.String("retry"), codec.Bool(false)))
		default:
			result.NotImplemented()
		}
	})

	client := NewMethodChannel(host, "battery", codec.StandardMethod)
	ctx := context.Background()

	v, err := client.Invoke(ctx, "getLevel", nil)
	require.NoError(t, err)
	assert.Equal(t, codec.Int32(87), v)

	_, err = client.Invoke(ctx, "fail", nil)
	var env *codec.EnvelopeError
	require.True(t, stderrors.As(err, &env))
	assert.Equal(t, "UNAVAILABLE", env.Code)
	require.NotNil(t, env.Message)
	assert.Equal(t, "no battery", *env.Message)

	_, err = client.Invoke(ctx, "unknown", nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestMethodChannelNoHandler(t *testing.T) {
	host, engine := connect(t)
	engine.DisableBufferingIncomingMessages()

	client := NewMethodChannel(host, "missing", nil)
	_, err := client.Invoke(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestMethodChannelInvokeMethodCallbacks(t *testing.T) {
	host, engine := connect(t)
	NewMethodChannel(engine, "calc", nil).SetMethodCallHandler(func(call codec.MethodCall, result MethodResult) {
		a, _ := call.Argument("a")
		b, _ := call.Argument("b")
		result.Success(codec.Int32(a.(codec.Int32) + b.(codec.Int32)))
	})

	var got codec.Value
	client := NewMethodChannel(host, "calc", nil)
	args := codec.MapOf(codec.String("a"), codec.Int32(2), codec.String("b"), codec.Int32(3))
	require.NoError(t, client.InvokeMethod("add", args, ResultFuncs{
		OnSuccess: func(result codec.Value) { got = result },
		OnError:   func(code, message string, _ any) { t.Errorf("error %s: %s", code, message) },
	}))
	assert.Equal(t, codec.Int32(5), got)

	// fire and forget
	require.NoError(t, client.InvokeMethod("add", args, nil))
}

func TestMethodChannelHandlerPanic(t *testing.T) {
	host, engine := connect(t)
	NewMethodChannel(engine, "p", nil).SetMethodCallHandler(func(codec.MethodCall, MethodResult) {
		panic("kaboom")
	})

	_, err := NewMethodChannel(host, "p", nil).Invoke(context.Background(), "m", nil)
	var env *codec.EnvelopeError
	require.True(t, stderrors.As(err, &env))
	assert.Equal(t, "error", env.Code)
	assert.Equal(t, "kaboom", *env.Message)
	trace, ok := env.Details.(codec.String)
	require.True(t, ok, "details carry the trace")
	assert.Contains(t, string(trace), "goroutine")
}

func TestMethodChannelErrorDetails(t *testing.T) {
	host, engine := connect(t)
	NewMethodChannel(engine, "d", nil).SetMethodCallHandler(func(call codec.MethodCall, result MethodResult) {
		switch call.Method {
		case "err":
			result.Error("E", "", fmt.Errorf("disk full"))
		case "go":
			result.Error("E", "msg", map[string]any{"n": 1})
		}
	})
	client := NewMethodChannel(host, "d", nil)

	_, err := client.Invoke(context.Background(), "err", nil)
	var env *codec.EnvelopeError
	require.True(t, stderrors.As(err, &env))
	assert.Nil(t, env.Message, "empty message travels as null")
	assert.Equal(t, codec.String("disk full"), env.Details)

	_, err = client.Invoke(context.Background(), "go", nil)
	require.True(t, stderrors.As(err, &env))
	assert.True(t, codec.Equal(codec.MapOf(codec.String("n"), codec.Int32(1)), env.Details))
}

func TestMethodChannelCorruptedCall(t *testing.T) {
	host, engine := connect(t)
	NewMethodChannel(engine, "c", nil).SetMethodCallHandler(func(codec.MethodCall, MethodResult) {
		t.Error("handler called with corrupted input")
	})

	var reply []byte
	require.NoError(t, host.Send("c", []byte{99}, func(b []byte) { reply = b }))
	_, err := codec.StandardMethod.DecodeEnvelope(reply)
	var env *codec.EnvelopeError
	require.True(t, stderrors.As(err, &env))
	assert.Equal(t, "corrupted_message", env.Code)
}

func TestInvokeContextCancel(t *testing.T) {
	host, engine := connect(t)
	NewMethodChannel(engine, "slow", nil).SetMethodCallHandler(func(codec.MethodCall, MethodResult) {
		// never answers
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewMethodChannel(host, "slow", nil).Invoke(ctx, "m", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, host.PendingReplyCount())
}

func TestMethodChannelTaskQueue(t *testing.T) {
	host, engine := connect(t)
	q := engine.MakeBackgroundTaskQueue(messenger.TaskQueueOptions{Serial: true})

	NewMethodChannel(engine, "bg", nil, WithTaskQueue(q)).SetMethodCallHandler(func(call codec.MethodCall, result MethodResult) {
		result.Success(codec.String(call.Method))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := NewMethodChannel(host, "bg", nil).Invoke(ctx, "work", nil)
	require.NoError(t, err)
	assert.Equal(t, codec.String("work"), v)
}

func TestBasicMessageChannelStandard(t *testing.T) {
	host, engine := connect(t)

	server := NewBasicMessageChannel[codec.Value](engine, "kv", codec.Standard)
	server.SetMessageHandler(func(message codec.Value, r *Responder[codec.Value]) {
		m := message.(*codec.Map)
		k, _ := m.GetString("key")
		_ = r.Send(codec.String("value-of-" + string(k.(codec.String))))
	})

	client := NewBasicMessageChannel[codec.Value](host, "kv", codec.Standard)
	v, err := client.Request(context.Background(), codec.MapOf(codec.String("key"), codec.String("a")))
	require.NoError(t, err)
	assert.Equal(t, codec.String("value-of-a"), v)
	assert.Equal(t, "kv", client.Name())
}

func TestBasicMessageChannelString(t *testing.T) {
	host, engine := connect(t)

	NewBasicMessageChannel[string](engine, "lifecycle", codec.StringCodec{}).
		SetMessageHandler(func(message string, r *Responder[string]) {
			_ = r.Send(strings.ToUpper(message))
		})

	var got string
	client := NewBasicMessageChannel[string](host, "lifecycle", codec.StringCodec{})
	require.NoError(t, client.Send("resumed", func(reply string, err error) {
		require.NoError(t, err)
		got = reply
	}))
	assert.Equal(t, "RESUMED", got)
}

func TestBasicMessageChannelEmptyReply(t *testing.T) {
	host, engine := connect(t)
	engine.DisableBufferingIncomingMessages()

	v, err := NewBasicMessageChannel[codec.Value](host, "none", codec.Standard).Request(context.Background(), codec.Null{})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBasicMessageChannelUndecodable(t *testing.T) {
	host, engine := connect(t)
	NewBasicMessageChannel[codec.Value](engine, "bad", codec.Standard).
		SetMessageHandler(func(codec.Value, *Responder[codec.Value]) {
			t.Error("handler called with undecodable message")
		})

	var reply []byte
	called := false
	require.NoError(t, host.Send("bad", []byte{99}, func(b []byte) {
		called = true
		reply = b
	}))
	assert.True(t, called)
	assert.Empty(t, reply)
}

func TestBasicMessageChannelBuffersUntilHandler(t *testing.T) {
	host, engine := connect(t)
	client := NewBasicMessageChannel[string](host, "early", codec.StringCodec{})

	var replies []string
	for _, m := range []string{"one", "two"} {
		require.NoError(t, client.Send(m, func(reply string, _ error) { replies = append(replies, reply) }))
	}
	assert.Equal(t, 2, engine.BufferedCount("early"))

	NewBasicMessageChannel[string](engine, "early", codec.StringCodec{}).
		SetMessageHandler(func(message string, r *Responder[string]) {
			_ = r.Send(message + "!")
		})
	assert.Equal(t, []string{"one!", "two!"}, replies)
}

type recordingStream struct {
	mu       sync.Mutex
	sink     EventSink
	listens  int
	cancels  int
	failNext bool
}

func (s *recordingStream) OnListen(args codec.Value, sink EventSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return fmt.Errorf("sensor offline")
	}
	s.listens++
	s.sink = sink
	return nil
}

func (s *recordingStream) OnCancel(codec.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
	return nil
}

func TestEventChannel(t *testing.T) {
	host, engine := connect(t)
	stream := &recordingStream{}
	NewEventChannel(engine, "sensor", nil).SetStreamHandler(stream)

	var events []codec.Value
	var failures []*codec.EnvelopeError
	var ended bool
	host.SetMessageHandler("sensor", func(message []byte, reply *pc.Reply) {
		defer reply.SendEmpty()
		if len(message) == 0 {
			ended = true
			return
		}
		v, err := codec.StandardMethod.DecodeEnvelope(message)
		if err != nil {
			events = append(events, codec.String("error:"+err.Error()))
			var env *codec.EnvelopeError
			if stderrors.As(err, &env) {
				failures = append(failures, env)
			}
			return
		}
		events = append(events, v)
	}, nil)

	control := NewMethodChannel(host, "sensor", nil)
	ctx := context.Background()

	_, err := control.Invoke(ctx, "listen", nil)
	require.NoError(t, err)
	require.NotNil(t, stream.sink)

	stream.sink.Success(codec.Float64(1.5))
	stream.sink.Error("GLITCH", "spike", nil)
	stream.sink.Error("QUIET", "", nil)
	stream.sink.EndOfStream()
	stream.sink.Success(codec.Float64(2)) // after end, dropped

	require.Len(t, events, 3)
	assert.Equal(t, codec.Float64(1.5), events[0])
	assert.Contains(t, string(events[1].(codec.String)), "GLITCH")
	require.Len(t, failures, 2)
	assert.Equal(t, "spike", *failures[0].Message)
	assert.Equal(t, "QUIET", failures[1].Code)
	assert.Nil(t, failures[1].Message, "empty message travels as null")
	assert.True(t, ended)

	_, err = control.Invoke(ctx, "cancel", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stream.cancels)

	_, err = control.Invoke(ctx, "cancel", nil)
	var env *codec.EnvelopeError
	require.True(t, stderrors.As(err, &env))
	assert.Equal(t, "No active stream to cancel", *env.Message)

	stream.failNext = true
	_, err = control.Invoke(ctx, "listen", nil)
	require.True(t, stderrors.As(err, &env))
	assert.Equal(t, "sensor offline", *env.Message)

	_, err = control.Invoke(ctx, "pause", nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestEventChannelRelistenCancelsPrevious(t *testing.T) {
	host, engine := connect(t)
	stream := &recordingStream{}
	NewEventChannel(engine, "s", nil).SetStreamHandler(stream)
	control := NewMethodChannel(host, "s", nil)

	_, err := control.Invoke(context.Background(), "listen", nil)
	require.NoError(t, err)
	first := stream.sink
	_, err = control.Invoke(context.Background(), "listen", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stream.listens)
	assert.Equal(t, 1, stream.cancels)
	assert.NotSame(t, first, stream.sink)
}
