package wsbridge

import (
	"context"
	stderrors "errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/codec"
	"github.com/wippyai/platform-channels/errors"
	"github.com/wippyai/platform-channels/messenger"
)

func TestFrameRoundTrip(t *testing.T) {
	frames := []Frame{
		{Kind: KindMessage, Channel: "echo", ID: 7, Payload: []byte{1, 2, 3}},
		{Kind: KindMessage, Channel: "fire", ID: pc.NoReply},
		{Kind: KindReply, Channel: "echo", ID: 7},
	}
	for _, f := range frames {
		data, err := EncodeFrame(f)
		require.NoError(t, err)
		got, err := DecodeFrame(data)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
}

func TestDecodeFrameRejects(t *testing.T) {
	bad := []codec.Value{
		codec.String("x"),
		codec.List{codec.Int32(0), codec.String("c")},
		codec.List{codec.Int64(0), codec.String("c"), codec.Int64(1), codec.Null{}},
		codec.List{codec.Int32(5), codec.String("c"), codec.Int64(1), codec.Null{}},
		codec.List{codec.Int32(0), codec.String("c"), codec.Int64(1), codec.String("p")},
	}
	for _, v := range bad {
		data, err := codec.Standard.EncodeMessage(v)
		require.NoError(t, err)
		_, err = DecodeFrame(data)
		assert.ErrorIs(t, err, errors.ErrCorruptedMessage, "value %s", codec.Format(v))
	}
}

type bridge struct {
	server chan *messenger.Messenger
	client *messenger.Messenger
	conn   *Conn
}

func newBridge(t *testing.T, setup func(m *messenger.Messenger)) *bridge {
	t.Helper()
	b := &bridge{server: make(chan *messenger.Messenger, 1)}

	srv := httptest.NewServer(NewServer(func(c *Conn) {
		m, err := messenger.New(c)
		require.NoError(t, err)
		setup(m)
		c.Attach(m)
		b.server <- m
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := Dial(ctx, url)
	require.NoError(t, err)
	client, err := messenger.New(conn)
	require.NoError(t, err)
	conn.Attach(client)
	go func() { _ = conn.Serve(ctx) }()
	t.Cleanup(func() {
		_ = client.Close()
		_ = conn.Close()
	})

	b.client = client
	b.conn = conn
	return b
}

func (b *bridge) serverMessenger(t *testing.T) *messenger.Messenger {
	t.Helper()
	select {
	case m := <-b.server:
		t.Cleanup(func() { _ = m.Close() })
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("server connection not established")
		return nil
	}
}

func TestRequestReplyOverWebSocket(t *testing.T) {
	b := newBridge(t, func(m *messenger.Messenger) {
		m.SetMessageHandler("echo", func(message []byte, reply *pc.Reply) {
			_ = reply.Send(append([]byte("echo:"), message...))
		}, nil)
	})
	b.serverMessenger(t)

	got := make(chan []byte, 1)
	require.NoError(t, b.client.Send("echo", []byte("hi"), func(reply []byte) { got <- reply }))

	select {
	case reply := <-got:
		assert.Equal(t, "echo:hi", string(reply))
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}
	assert.Equal(t, 0, b.client.PendingReplyCount())
}

func TestEmptyReplyForUnknownChannel(t *testing.T) {
	b := newBridge(t, func(m *messenger.Messenger) {
		m.DisableBufferingIncomingMessages()
	})
	b.serverMessenger(t)

	got := make(chan []byte, 1)
	require.NoError(t, b.client.Send("missing", []byte{1}, func(reply []byte) { got <- reply }))

	select {
	case reply := <-got:
		assert.Empty(t, reply)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}
}

func TestServerInitiatedMessage(t *testing.T) {
	received := make(chan string, 1)
	b := newBridge(t, func(m *messenger.Messenger) {})
	b.client.SetMessageHandler("notify", func(message []byte, reply *pc.Reply) {
		received <- string(message)
		_ = reply.SendEmpty()
	}, nil)
	server := b.serverMessenger(t)

	require.NoError(t, server.Send("notify", []byte("ping"), nil))
	select {
	case s := <-received:
		assert.Equal(t, "ping", s)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestSendAfterClose(t *testing.T) {
	b := newBridge(t, func(m *messenger.Messenger) {})
	b.serverMessenger(t)
	require.NoError(t, b.conn.Close())

	err := b.conn.Send("x", nil, pc.NoReply)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, errors.KindClosed, e.Kind)

	select {
	case <-b.conn.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestEmptyReplyBeforeAttach(t *testing.T) {
	srv := httptest.NewServer(NewServer(nil))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	conn, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	client, err := messenger.New(conn)
	require.NoError(t, err)
	conn.Attach(client)
	go func() { _ = conn.Serve(ctx) }()
	t.Cleanup(func() {
		_ = client.Close()
		_ = conn.Close()
	})

	got := make(chan []byte, 1)
	require.NoError(t, client.Send("early", []byte{1}, func(reply []byte) { got <- reply }))

	select {
	case reply := <-got:
		assert.Empty(t, reply)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}
	assert.Equal(t, 0, client.PendingReplyCount())
}
