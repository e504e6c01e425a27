package messenger

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	pc "github.com/wippyai/platform-channels"
)

// DefaultMaxBuffered is the per-channel buffer limit.
const DefaultMaxBuffered = 1024

type options struct {
	platform    pc.TaskQueue
	log         *zap.Logger
	registerer  prometheus.Registerer
	maxBuffered int
	buffering   bool
}

func defaultOptions() options {
	return options{
		maxBuffered: DefaultMaxBuffered,
		buffering:   true,
	}
}

// Option configures a Messenger.
type Option func(*options)

// WithPlatformRunner sets the context reply callbacks run on. The default
// runs them on the goroutine that delivered the reply.
func WithPlatformRunner(r pc.TaskQueue) Option {
	return func(o *options) {
		o.platform = r
	}
}

// WithLogger sets the messenger's logger. The default is Logger().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMetrics registers the messenger's collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithMaxBuffered sets how many messages each channel buffers while it has
// no handler. Values below 1 select DefaultMaxBuffered.
func WithMaxBuffered(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = DefaultMaxBuffered
		}
		o.maxBuffered = n
	}
}

// WithBuffering sets the initial buffering mode. Buffering is on by default.
func WithBuffering(enabled bool) Option {
	return func(o *options) {
		o.buffering = enabled
	}
}
