// Package wsbridge carries channel traffic between two processes over a
// WebSocket connection.
//
// Each binary WebSocket message is one frame, encoded with the standard
// message codec as a four-element list:
//
//	[Int32 kind, String channel, Int64 reply id, Bytes|Null payload]
//
// Kind 0 is a message; its reply id is 0 when the sender expects no
// answer. Kind 1 answers the message with the same reply id; a Null
// payload is the empty reply.
//
// A Conn is the Transport of the local messenger and the messenger is the
// Receiver attached to the Conn:
//
//	conn, err := wsbridge.Dial(ctx, "ws://127.0.0.1:8765/channels")
//	m, err := messenger.New(conn)
//	conn.Attach(m)
//	go conn.Serve(ctx)
//
// Frames are dispatched on the read goroutine. A handler that blocks on a
// reply from the same connection must run on a task queue.
package wsbridge
