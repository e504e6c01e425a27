package messenger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/errors"
	"github.com/wippyai/platform-channels/runner"
)

type handlerEntry struct {
	handler pc.BinaryHandler
	queue   pc.TaskQueue
}

type bufferedMessage struct {
	payload []byte
	reply   pc.BinaryReply
}

// Messenger routes raw messages between named channels and a Transport.
//
// Outbound, Send assigns each request a fresh correlation id and runs the
// callback when the transport reports the reply. Inbound, Dispatch hands a
// message to the channel's handler, inline or on its task queue, or buffers
// it until a handler is registered.
//
// All methods are safe for concurrent use. No lock is held while handlers,
// callbacks or the transport run.
type Messenger struct {
	transport pc.Transport
	platform  pc.TaskQueue
	log       *zap.Logger
	metrics   *Metrics
	pending   *pendingTable

	mu          sync.Mutex
	handlers    map[string]*handlerEntry
	buffers     map[string][]bufferedMessage
	draining    map[string]bool
	queues      []*TaskQueue
	maxBuffered int
	buffering   bool
	closed      bool
}

var (
	_ pc.BinaryMessenger = (*Messenger)(nil)
	_ pc.Receiver        = (*Messenger)(nil)
)

// New creates a messenger sending through transport.
func New(transport pc.Transport, opts ...Option) (*Messenger, error) {
	if transport == nil {
		return nil, errors.InvalidInput(errors.PhaseSend, "nil transport")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = Logger()
	}
	if o.platform == nil {
		o.platform = runner.NewInline()
	}

	m := &Messenger{
		transport:   transport,
		platform:    o.platform,
		log:         o.log,
		pending:     newPendingTable(),
		handlers:    make(map[string]*handlerEntry),
		buffers:     make(map[string][]bufferedMessage),
		draining:    make(map[string]bool),
		maxBuffered: o.maxBuffered,
		buffering:   o.buffering,
	}
	if o.registerer != nil {
		metrics, err := NewMetrics(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register messenger metrics: %w", err)
		}
		m.metrics = metrics
	}
	return m, nil
}

// Send delivers message on channel. With a non-nil callback the transport is
// asked for a reply, and callback runs exactly once on the platform runner
// when it arrives, unless the messenger is closed first.
func (m *Messenger) Send(channel string, message []byte, callback pc.BinaryReply) error {
	id := pc.NoReply
	if callback != nil {
		var ok bool
		if id, ok = m.pending.add(callback); !ok {
			return errors.Closed(errors.PhaseSend, "messenger")
		}
	} else if m.isClosed() {
		return errors.Closed(errors.PhaseSend, "messenger")
	}

	if err := m.transport.Send(channel, message, id); err != nil {
		m.pending.take(id)
		m.log.Warn("transport send failed",
			zap.String("channel", channel),
			zap.Int64("reply_id", int64(id)),
			zap.Error(err),
		)
		return errors.Transport(channel, err)
	}
	m.metrics.messageSent(callback != nil)
	return nil
}

// HandleReply completes the outbound request with id. Replies for unknown,
// consumed or abandoned ids are dropped.
func (m *Messenger) HandleReply(id pc.ReplyID, reply []byte) {
	callback, ok := m.pending.take(id)
	if !ok {
		m.log.Debug("dropping reply for unknown id", zap.Int64("reply_id", int64(id)))
		m.metrics.reply(outcomeOrphaned, 1)
		return
	}
	m.metrics.reply(outcomeDelivered, 1)

	task := func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("reply callback panicked",
					zap.Int64("reply_id", int64(id)),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
			}
		}()
		callback(reply)
	}
	if !m.platform.Post(task) {
		m.log.Warn("platform runner rejected reply", zap.Int64("reply_id", int64(id)))
	}
}

// Dispatch routes an inbound message to channel's handler. A nil reply means
// the sender expects no answer.
//
// Without a handler the message is buffered while buffering is enabled, or
// answered with an empty reply otherwise. Messages on one channel reach the
// handler, or its task queue, in arrival order.
func (m *Messenger) Dispatch(channel string, message []byte, reply pc.BinaryReply) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.metrics.dispatch(modeDropped)
		replyEmpty(reply)
		return
	}

	entry := m.handlers[channel]
	if entry != nil && !m.draining[channel] {
		m.mu.Unlock()
		m.invoke(channel, entry, message, reply)
		return
	}

	if entry == nil && !m.buffering {
		m.mu.Unlock()
		m.log.Debug("no handler for message", zap.String("channel", channel))
		m.metrics.dispatch(modeDropped)
		replyEmpty(reply)
		return
	}

	// The cap only applies while no handler is registered; arrivals during a
	// drain always reach the handler.
	if entry == nil && len(m.buffers[channel]) >= m.maxBuffered {
		m.mu.Unlock()
		m.log.Warn("channel buffer full, dropping message",
			zap.String("channel", channel),
			zap.Int("limit", m.maxBuffered),
		)
		m.metrics.dispatch(modeDropped)
		replyEmpty(reply)
		return
	}
	m.buffers[channel] = append(m.buffers[channel], bufferedMessage{payload: message, reply: reply})
	m.mu.Unlock()

	m.metrics.dispatch(modeBuffered)
}

// SetMessageHandler registers, replaces, or with a nil handler clears the
// handler for channel. A non-nil queue runs the handler there instead of on
// the dispatching goroutine.
//
// Messages buffered for channel are delivered to the new handler in arrival
// order before any message that arrives afterwards.
func (m *Messenger) SetMessageHandler(channel string, handler pc.BinaryHandler, queue pc.TaskQueue) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if handler == nil {
		delete(m.handlers, channel)
		m.mu.Unlock()
		return
	}

	m.handlers[channel] = &handlerEntry{handler: handler, queue: queue}
	if len(m.buffers[channel]) == 0 || m.draining[channel] {
		m.mu.Unlock()
		return
	}
	m.draining[channel] = true
	m.mu.Unlock()

	m.drain(channel)
}

// drain replays channel's buffer until it stays empty. Messages arriving
// meanwhile are appended to the buffer, so order is kept.
func (m *Messenger) drain(channel string) {
	for {
		m.mu.Lock()
		batch := m.buffers[channel]
		entry := m.handlers[channel]
		if len(batch) == 0 || entry == nil || m.closed {
			delete(m.draining, channel)
			m.mu.Unlock()
			return
		}
		delete(m.buffers, channel)
		m.mu.Unlock()

		m.log.Debug("draining buffered messages",
			zap.String("channel", channel),
			zap.Int("count", len(batch)),
		)
		for _, msg := range batch {
			m.invoke(channel, entry, msg.payload, msg.reply)
		}
	}
}

func (m *Messenger) invoke(channel string, entry *handlerEntry, message []byte, reply pc.BinaryReply) {
	token := pc.NewReply(channel, reply)
	task := func() {
		m.runHandler(channel, entry.handler, message, token)
	}

	if entry.queue == nil {
		m.metrics.dispatch(modeInline)
		task()
		return
	}
	m.metrics.dispatch(modeQueue)
	if !entry.queue.Post(task) {
		m.log.Warn("task queue rejected message", zap.String("channel", channel))
		_ = token.SendEmpty()
	}
}

func (m *Messenger) runHandler(channel string, handler pc.BinaryHandler, message []byte, token *pc.Reply) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("message handler panicked",
				zap.String("channel", channel),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			_ = token.SendEmpty()
		}
	}()
	handler(message, token)
}

// EnableBufferingIncomingMessages buffers messages for channels without a
// handler. This is the default.
func (m *Messenger) EnableBufferingIncomingMessages() {
	m.mu.Lock()
	m.buffering = true
	m.mu.Unlock()
}

// DisableBufferingIncomingMessages stops buffering and answers every message
// buffered for a channel without a handler with an empty reply.
func (m *Messenger) DisableBufferingIncomingMessages() {
	m.mu.Lock()
	m.buffering = false
	var flushed []bufferedMessage
	for channel, msgs := range m.buffers {
		if m.draining[channel] {
			continue
		}
		flushed = append(flushed, msgs...)
		delete(m.buffers, channel)
	}
	m.mu.Unlock()

	if len(flushed) > 0 {
		m.log.Debug("flushed buffered messages", zap.Int("count", len(flushed)))
	}
	for _, msg := range flushed {
		replyEmpty(msg.reply)
	}
}

// PendingReplyCount returns the number of outbound requests awaiting a
// reply.
func (m *Messenger) PendingReplyCount() int {
	return m.pending.len()
}

// BufferedCount returns the number of messages buffered for channel.
func (m *Messenger) BufferedCount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers[channel])
}

// Close tears the messenger down. Pending replies are abandoned without
// running their callbacks, buffered messages get empty replies, and task
// queues made by this messenger are stopped after finishing accepted work.
// Close must not be called from a handler running on one of those queues.
func (m *Messenger) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	buffers := m.buffers
	queues := m.queues
	m.buffers = make(map[string][]bufferedMessage)
	m.handlers = make(map[string]*handlerEntry)
	m.queues = nil
	m.mu.Unlock()

	abandoned := m.pending.close()
	m.metrics.reply(outcomeAbandoned, abandoned)

	flushed := 0
	for _, msgs := range buffers {
		for _, msg := range msgs {
			replyEmpty(msg.reply)
			flushed++
		}
	}
	for _, q := range queues {
		_ = q.Close()
	}

	m.log.Debug("messenger closed",
		zap.Int("abandoned_replies", abandoned),
		zap.Int("flushed_messages", flushed),
	)
	return nil
}

// Metrics returns the messenger's collectors, or nil without WithMetrics.
func (m *Messenger) Metrics() *Metrics {
	return m.metrics
}

func (m *Messenger) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func replyEmpty(reply pc.BinaryReply) {
	if reply != nil {
		reply(nil)
	}
}
