package platformchannels

// ReplyID correlates an outbound message with its reply. Zero means no
// reply is expected.
type ReplyID int64

// NoReply marks a fire-and-forget message.
const NoReply ReplyID = 0

// BinaryReply receives a raw reply payload. A nil or empty payload means
// the peer had no handler or declined to answer.
type BinaryReply func(reply []byte)

// BinaryHandler handles one inbound message. It must complete reply exactly
// once, from any goroutine.
type BinaryHandler func(message []byte, reply *Reply)

// Transport is the native send primitive. Implementations must be safe for
// concurrent use: replies are sent from whatever goroutine the handler ran
// on.
type Transport interface {
	// Send delivers payload on channel. A non-zero id asks the peer to answer
	// through Receiver.HandleReply with the same id.
	Send(channel string, payload []byte, id ReplyID) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(channel string, payload []byte, id ReplyID) error

func (f TransportFunc) Send(channel string, payload []byte, id ReplyID) error {
	return f(channel, payload, id)
}

// Receiver is the inbound side a transport delivers into.
type Receiver interface {
	// Dispatch routes an inbound message. reply may be nil when the peer
	// expects no answer.
	Dispatch(channel string, message []byte, reply BinaryReply)
	// HandleReply completes the pending outbound message with id.
	// Unknown ids are dropped.
	HandleReply(id ReplyID, reply []byte)
}

// TaskQueue is an execution context a channel handler can be bound to.
type TaskQueue interface {
	Post(task func()) bool
}

// BinaryMessenger is the messenger surface the channel facades use.
type BinaryMessenger interface {
	Send(channel string, message []byte, callback BinaryReply) error
	SetMessageHandler(channel string, handler BinaryHandler, queue TaskQueue)
}
