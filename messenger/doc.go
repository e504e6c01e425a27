// Package messenger implements the binary messenger: the routing layer
// between channel facades and the native transport.
//
// # Outbound
//
// Send with a callback allocates a correlation id, records the callback in
// the pending table and passes the id to Transport.Send. When the transport
// calls HandleReply with that id the callback runs once on the platform
// runner. Ids increase monotonically and are never reused.
//
// # Inbound
//
//	Dispatch(channel, bytes, reply)
//	  ├── handler registered      → handler(bytes, *Reply), inline or on its task queue
//	  ├── no handler, buffering   → per-channel FIFO (bounded)
//	  └── no handler, no buffer   → empty reply
//
// Registering a handler replays the channel's buffer in arrival order before
// any later message reaches the handler.
//
// # Teardown
//
// Close abandons pending replies without running their callbacks, answers
// buffered messages with empty replies and stops the task queues the
// messenger created.
package messenger
