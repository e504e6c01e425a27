package loopback

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/errors"
	"github.com/wippyai/platform-channels/messenger"
	"github.com/wippyai/platform-channels/runner"
)

func connect(t *testing.T, opts ...Option) (*messenger.Messenger, *messenger.Messenger) {
	t.Helper()
	a, b := NewPair(opts...)
	ma, err := messenger.New(a)
	require.NoError(t, err)
	mb, err := messenger.New(b)
	require.NoError(t, err)
	a.Attach(ma)
	b.Attach(mb)
	t.Cleanup(func() {
		_ = ma.Close()
		_ = mb.Close()
	})
	return ma, mb
}

func TestRequestReply(t *testing.T) {
	host, engine := connect(t)

	engine.SetMessageHandler("echo", func(message []byte, reply *pc.Reply) {
		_ = reply.Send(append([]byte("echo:"), message...))
	}, nil)

	var got []byte
	require.NoError(t, host.Send("echo", []byte("hi"), func(reply []byte) { got = reply }))
	assert.Equal(t, "echo:hi", string(got))
	assert.Equal(t, 0, host.PendingReplyCount())
}

func TestPayloadIsCopied(t *testing.T) {
	host, engine := connect(t)

	var seen []byte
	engine.SetMessageHandler("x", func(message []byte, reply *pc.Reply) {
		seen = message
		_ = reply.SendEmpty()
	}, nil)

	buf := []byte{1, 2, 3}
	require.NoError(t, host.Send("x", buf, nil))
	buf[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, seen)
}

func TestAsyncDelivery(t *testing.T) {
	q := runner.NewSerial()
	defer q.Close()
	host, engine := connect(t, WithDelivery(q))

	engine.SetMessageHandler("x", func(message []byte, reply *pc.Reply) {
		_ = reply.Send(message)
	}, nil)

	got := make(chan []byte, 1)
	require.NoError(t, host.Send("x", []byte{7}, func(reply []byte) { got <- reply }))
	select {
	case b := <-got:
		assert.Equal(t, []byte{7}, b)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}
}

func TestSendWithoutPeerReceiver(t *testing.T) {
	a, _ := NewPair()
	err := a.Send("x", nil, pc.NoReply)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, errors.KindNotFound, e.Kind)
}

func TestClosedEndpoint(t *testing.T) {
	a, b := NewPair()
	require.NoError(t, b.Close())
	err := a.Send("x", nil, pc.NoReply)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, errors.KindClosed, e.Kind)
}

func TestClosedDeliveryQueue(t *testing.T) {
	q := runner.NewSerial()
	require.NoError(t, q.Close())
	host, engine := connect(t, WithDelivery(q))
	engine.SetMessageHandler("x", func(message []byte, reply *pc.Reply) {
		_ = reply.Send(message)
	}, nil)

	err := host.Send("x", []byte{1}, func([]byte) {})
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseTransport, Kind: errors.KindClosed})
	assert.Equal(t, 0, host.PendingReplyCount())
}

func TestReplyAfterDeliveryQueueCloses(t *testing.T) {
	a, b := NewPair()
	host, err := messenger.New(a)
	require.NoError(t, err)
	engine, err := messenger.New(b)
	require.NoError(t, err)
	a.Attach(host)
	b.Attach(engine)
	t.Cleanup(func() {
		_ = host.Close()
		_ = engine.Close()
	})

	var held *pc.Reply
	engine.SetMessageHandler("x", func(_ []byte, reply *pc.Reply) { held = reply }, nil)

	got := make(chan []byte, 1)
	require.NoError(t, host.Send("x", []byte{1}, func(reply []byte) { got <- reply }))
	require.NotNil(t, held)

	q := runner.NewSerial()
	require.NoError(t, q.Close())
	a.delivery = q

	require.NoError(t, held.Send([]byte{2}))
	select {
	case reply := <-got:
		assert.Equal(t, []byte{2}, reply)
	case <-time.After(2 * time.Second):
		t.Fatal("reply lost")
	}
}
