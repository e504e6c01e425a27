// Package platformchannels multiplexes named message channels between a host
// application and an embedded engine over a single native transport.
//
// # Architecture Overview
//
//	platformchannels/    Transport boundary, reply tokens, messenger interface
//	├── bytecursor/      Endian-aware byte buffer with alignment
//	├── codec/           Value model, standard binary codec, method envelopes
//	├── runner/          Inline, serial and pooled execution contexts
//	├── messenger/       BinaryMessenger: send, dispatch, buffering, task queues
//	├── channel/         MethodChannel, BasicMessageChannel, EventChannel facades
//	├── transport/       Loopback, WebSocket and WebAssembly transports
//	├── config/          TOML configuration
//	├── errors/          Structured error types
//	└── cmd/channelctl/  Payload inspection and bridge CLI
//
// # Data Flow
//
// Outbound, a facade encodes a call with its codec and hands the bytes to
// the messenger, which registers a pending reply and calls Transport.Send.
// Inbound, the transport calls Dispatch; the messenger routes the bytes to
// the channel's handler, inline or on its task queue, and the handler
// completes a one-shot Reply that travels back through the transport.
//
// # Quick Start
//
//	m, err := messenger.New(transport)
//	ch := channel.NewMethodChannel(m, "samples/battery", codec.StandardMethod)
//
//	ch.SetMethodCallHandler(func(call codec.MethodCall, result channel.MethodResult) {
//		switch call.Method {
//		case "getLevel":
//			result.Success(codec.Int32(87))
//		default:
//			result.NotImplemented()
//		}
//	})
//
//	level, err := ch.Invoke(ctx, "getLevel", nil)
//
// # Wire Compatibility
//
// The standard codec is byte-compatible with other implementations of the
// same protocol: type tags, the 254/0xFFFF size prefix thresholds and the
// alignment rules all match. See package codec for the layout.
package platformchannels
