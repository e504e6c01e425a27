// Package wasmbridge connects a host messenger to a guest engine compiled to
// a WebAssembly core module and run by wazero.
//
// # Guest ABI
//
// The guest exports:
//
//	memory
//	alloc(size i32) -> i32
//	on_message(channel_ptr, channel_len, data_ptr, data_len i32, reply_id i64)
//	on_reply(reply_id i64, data_ptr, data_len i32)
//
// and imports from module "platform":
//
//	send(channel_ptr, channel_len, data_ptr, data_len i32, reply_id i64)
//	reply(reply_id i64, data_ptr, data_len i32)
//
// A reply id of 0 means no reply is expected. A data length of -1 marks the
// empty reply. Host ids and guest ids are separate namespaces: the host
// answers a guest send through on_reply with the guest's id, and the guest
// answers on_message through reply with the host's id.
//
// # Threading
//
// All guest calls run on one serial engine runner. Messages the guest sends
// are dispatched on that runner after the guest call that produced them
// returns, so handlers attached to the host messenger run there too and
// must not call Do or Close.
//
//	b, err := wasmbridge.New(ctx, wasmBytes, nil)
//	m, err := messenger.New(b)
//	b.Attach(m)
package wasmbridge
