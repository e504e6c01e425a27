package wsbridge

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/errors"
)

const writeTimeout = 10 * time.Second

// Conn carries channel traffic over one WebSocket connection. It is the
// Transport of the local messenger and delivers inbound frames into the
// attached Receiver.
type Conn struct {
	ws  *websocket.Conn
	log *zap.Logger
	id  string

	writeMu sync.Mutex

	mu       sync.RWMutex
	receiver pc.Receiver

	closeOnce sync.Once
	done      chan struct{}
}

// NewConn wraps an established WebSocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:   ws,
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
	c.log = Logger().With(zap.String("session", c.id))
	return c
}

// Dial connects to a bridge server at url.
func Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseTransport, errors.KindUnsupported, err, "dial "+url)
	}
	return NewConn(ws), nil
}

// ID returns the session identifier used in logs.
func (c *Conn) ID() string {
	return c.id
}

// Attach sets the receiver inbound frames are delivered into.
func (c *Conn) Attach(r pc.Receiver) {
	c.mu.Lock()
	c.receiver = r
	c.mu.Unlock()
}

// Send writes a message frame.
func (c *Conn) Send(channel string, payload []byte, id pc.ReplyID) error {
	return c.writeFrame(Frame{Kind: KindMessage, Channel: channel, ID: id, Payload: payload})
}

func (c *Conn) writeFrame(f Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return errors.Closed(errors.PhaseTransport, "websocket bridge")
	default:
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return errors.Transport(f.Channel, err)
	}
	return nil
}

// Serve reads frames until the connection closes or ctx is done. Message
// frames go to Receiver.Dispatch, reply frames to Receiver.HandleReply.
func (c *Conn) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			_ = c.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			select {
			case <-c.done:
				return nil
			default:
			}
			return errors.Wrap(errors.PhaseTransport, errors.KindClosed, err, "websocket read")
		}
		if messageType != websocket.BinaryMessage {
			c.log.Debug("ignoring non-binary frame", zap.Int("type", messageType))
			continue
		}

		f, err := DecodeFrame(data)
		if err != nil {
			c.log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		c.deliver(f)
	}
}

func (c *Conn) deliver(f Frame) {
	c.mu.RLock()
	r := c.receiver
	c.mu.RUnlock()
	if r == nil {
		c.log.Warn("frame received before a receiver was attached", zap.String("channel", f.Channel))
		if f.Kind == KindMessage && f.ID != pc.NoReply {
			c.replyTo(f.Channel, f.ID)(nil)
		}
		return
	}

	switch f.Kind {
	case KindReply:
		r.HandleReply(f.ID, f.Payload)
	case KindMessage:
		var reply pc.BinaryReply
		if f.ID != pc.NoReply {
			reply = c.replyTo(f.Channel, f.ID)
		}
		r.Dispatch(f.Channel, f.Payload, reply)
	}
}

// replyTo returns a callback that answers message id on channel with a
// reply frame.
func (c *Conn) replyTo(channel string, id pc.ReplyID) pc.BinaryReply {
	return func(answer []byte) {
		if err := c.writeFrame(Frame{Kind: KindReply, Channel: channel, ID: id, Payload: answer}); err != nil {
			c.log.Warn("failed to send reply",
				zap.String("channel", channel),
				zap.Int64("reply_id", int64(id)),
				zap.Error(err),
			)
		}
	}
}

// Done is closed when the connection shuts down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

// Server upgrades HTTP requests to bridge connections.
type Server struct {
	upgrader websocket.Upgrader
	connect  func(*Conn)
}

// NewServer creates a bridge endpoint. connect runs for every new
// connection before frames are read; it attaches a receiver, typically a
// messenger that uses the Conn as its transport.
func NewServer(connect func(*Conn)) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		connect: connect,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger().Error("failed to upgrade websocket connection", zap.Error(err))
		return
	}
	c := NewConn(ws)
	c.log.Info("bridge connection established", zap.String("remote_addr", ws.RemoteAddr().String()))
	if s.connect != nil {
		s.connect(c)
	}
	if err := c.Serve(r.Context()); err != nil {
		c.log.Warn("bridge connection ended", zap.Error(err))
		return
	}
	c.log.Info("bridge connection closed")
}
