// Package channel provides the typed facades over a BinaryMessenger.
//
//	MethodChannel            named method calls with success/error envelopes
//	BasicMessageChannel[T]   plain messages through any MessageCodec[T]
//	EventChannel             event streams started and stopped by the peer
//
// Facades hold their codec by value and keep no state beyond the channel
// name, so several facades may share one messenger. Decoding errors never
// reach the messenger: an undecodable call is answered with an error reply.
package channel
