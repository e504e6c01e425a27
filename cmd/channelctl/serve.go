package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/platform-channels/channel"
	"github.com/wippyai/platform-channels/codec"
	"github.com/wippyai/platform-channels/messenger"
	"github.com/wippyai/platform-channels/transport/wsbridge"
)

var (
	serveListen string
	serveEcho   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a WebSocket peer that answers method calls",
	Long: `Serve accepts bridge connections and gives each one its own messenger.
The method channel (default "echo") answers:

  echo      returns its arguments
  ping      returns "pong"
  channels  returns the channel names this peer serves

and reports every other method as not implemented. Strings sent on the
basic channel "log" are written to the log. Prometheus metrics are served
on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen := cfg.Bridge.Listen
		if serveListen != "" {
			listen = serveListen
		}

		reg := prometheus.NewRegistry()
		mux := http.NewServeMux()
		mux.Handle(cfg.Bridge.Path, wsbridge.NewServer(func(c *wsbridge.Conn) {
			servePeer(c, reg)
		}))
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

		srv := &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("bridge listening",
				zap.String("listen", listen),
				zap.String("path", cfg.Bridge.Path))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !stderrors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}

// servePeer wires a messenger and the demo channels to a new connection.
func servePeer(c *wsbridge.Conn, reg prometheus.Registerer) {
	session := zap.String("session", c.ID())
	opts := append(cfg.MessengerOptions(),
		messenger.WithLogger(log.With(session)),
		messenger.WithMetrics(prometheus.WrapRegistererWith(prometheus.Labels{"session": c.ID()}, reg)),
	)
	m, err := messenger.New(c, opts...)
	if err != nil {
		log.Error("failed to create messenger", session, zap.Error(err))
		_ = c.Close()
		return
	}
	c.Attach(m)

	queue := m.MakeBackgroundTaskQueue(cfg.TaskQueueOptions())
	methods := channel.NewMethodChannel(m, serveEcho, nil, channel.WithTaskQueue(queue))
	methods.SetMethodCallHandler(echoHandler)

	logs := channel.NewBasicMessageChannel[string](m, "log", codec.StringCodec{})
	logs.SetMessageHandler(func(message string, reply *channel.Responder[string]) {
		log.Info("peer log", session, zap.String("message", message))
		_ = reply.Send("ok")
	})

	go func() {
		<-c.Done()
		if err := m.Close(); err != nil {
			log.Warn("messenger close failed", session, zap.Error(err))
		}
		m.Metrics().Unregister()
	}()
}

func echoHandler(call codec.MethodCall, result channel.MethodResult) {
	switch call.Method {
	case "echo":
		result.Success(call.Arguments)
	case "ping":
		result.Success(codec.String("pong"))
	case "channels":
		result.Success(codec.List{codec.String(serveEcho), codec.String("log")})
	default:
		result.NotImplemented()
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides bridge.listen)")
	serveCmd.Flags().StringVar(&serveEcho, "channel", "echo", "Method channel name")
}
