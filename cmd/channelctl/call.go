package main

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/platform-channels/channel"
	"github.com/wippyai/platform-channels/codec"
	"github.com/wippyai/platform-channels/messenger"
	"github.com/wippyai/platform-channels/transport/wasmbridge"
	"github.com/wippyai/platform-channels/transport/wsbridge"
)

var (
	callURL     string
	callChannel string
	callTimeout time.Duration

	guestChannel string
	guestMessage string
	guestPages   uint32
)

var callCmd = &cobra.Command{
	Use:   "call <method> [json-arguments]",
	Short: "Invoke a method on a bridge peer",
	Example: `  channelctl call ping
  channelctl call echo '{"n": 1}' --url ws://127.0.0.1:8765/channels`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var arguments codec.Value = codec.Null{}
		if len(args) == 2 {
			v, err := codec.JSONMessageCodec{}.DecodeMessage([]byte(args[1]))
			if err != nil {
				return fmt.Errorf("parse arguments: %w", err)
			}
			arguments = v
		}

		url := callURL
		if url == "" {
			url = "ws://" + cfg.Bridge.Listen + cfg.Bridge.Path
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
		defer cancel()

		conn, err := wsbridge.Dial(ctx, url)
		if err != nil {
			return err
		}
		defer conn.Close()

		m, err := messenger.New(conn, cfg.MessengerOptions()...)
		if err != nil {
			return err
		}
		defer m.Close()
		conn.Attach(m)
		go func() {
			if err := conn.Serve(ctx); err != nil && ctx.Err() == nil {
				log.Warn("bridge connection ended", zap.Error(err))
			}
		}()

		result, err := channel.NewMethodChannel(m, callChannel, nil).Invoke(ctx, args[0], arguments)
		return printResult(cmd, result, err)
	},
}

func printResult(cmd *cobra.Command, result codec.Value, err error) error {
	out := cmd.OutOrStdout()
	var envErr *codec.EnvelopeError
	switch {
	case err == nil:
		fmt.Fprintln(out, codec.FormatIndent(result, "  "))
		return nil
	case stderrors.Is(err, channel.ErrNotImplemented):
		fmt.Fprintln(out, "not implemented")
		return nil
	case stderrors.As(err, &envErr):
		fmt.Fprintf(out, "error %s", envErr.Code)
		if envErr.Message != nil {
			fmt.Fprintf(out, ": %s", *envErr.Message)
		}
		fmt.Fprintf(out, "\ndetails: %s\n", codec.FormatIndent(envErr.Details, "  "))
		return err
	default:
		return err
	}
}

var guestCmd = &cobra.Command{
	Use:   "guest <module.wasm>",
	Short: "Send one message to a WebAssembly guest engine and print the reply",
	Long: `Guest loads a core module implementing the platform guest ABI (exports
memory, alloc, on_message, on_reply; imports platform.send and
platform.reply), sends one standard-codec message and prints the reply.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wasmBytes, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		message, err := codec.JSONMessageCodec{}.DecodeMessage([]byte(guestMessage))
		if err != nil {
			return fmt.Errorf("parse message: %w", err)
		}
		payload, err := codec.Standard.EncodeMessage(message)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
		defer cancel()

		bridge, err := wasmbridge.New(ctx, wasmBytes, &wasmbridge.Config{MemoryLimitPages: guestPages})
		if err != nil {
			return err
		}
		defer bridge.Close()

		m, err := messenger.New(bridge, append(cfg.MessengerOptions(), messenger.WithBuffering(false))...)
		if err != nil {
			return err
		}
		defer m.Close()
		bridge.Attach(m)

		replies := make(chan []byte, 1)
		if err := m.Send(guestChannel, payload, func(reply []byte) { replies <- reply }); err != nil {
			return err
		}

		select {
		case reply := <-replies:
			return printReply(cmd, reply)
		case <-ctx.Done():
			return fmt.Errorf("waiting for guest reply: %w", ctx.Err())
		}
	},
}

func printReply(cmd *cobra.Command, reply []byte) error {
	out := cmd.OutOrStdout()
	if len(reply) == 0 {
		fmt.Fprintln(out, "empty reply")
		return nil
	}
	v, err := codec.Standard.DecodeMessage(reply)
	if err != nil {
		fmt.Fprintf(out, "undecodable reply (%v):\n%s\n", err, strings.TrimSpace(hex.Dump(reply)))
		return nil
	}
	fmt.Fprintln(out, codec.FormatIndent(v, "  "))
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{callCmd, guestCmd} {
		cmd.Flags().DurationVar(&callTimeout, "timeout", 5*time.Second, "Time to wait for the reply")
	}
	callCmd.Flags().StringVar(&callURL, "url", "", "Bridge URL (default from bridge.listen and bridge.path)")
	callCmd.Flags().StringVar(&callChannel, "channel", "echo", "Method channel name")

	guestCmd.Flags().StringVar(&guestChannel, "channel", "echo", "Channel to send on")
	guestCmd.Flags().StringVar(&guestMessage, "message", "null", "Message as JSON")
	guestCmd.Flags().Uint32Var(&guestPages, "memory-pages", 0, "Guest memory limit in 64KB pages")
}
