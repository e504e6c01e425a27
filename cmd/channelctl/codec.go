package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/platform-channels/codec"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [hex...]",
	Short: "Decode a message payload and print its value",
	Example: `  channelctl decode 0d 01 07 01 61 03 01 00 00 00
  channelctl decode --codec cbor -f payload.bin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := selectCodec(codecName)
		if err != nil {
			return err
		}
		data, err := readPayload(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		v, err := c.DecodeMessage(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), codec.FormatIndent(v, "  "))
		return nil
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode [json]",
	Short: "Encode a JSON value with a message codec",
	Long: `Encode reads a JSON value from the argument or stdin and prints the
payload in hex. Whole numbers in signed 32-bit range become Int32, others
Int64.`,
	Example: `  channelctl encode '{"a": [1, 2.5, null]}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := selectCodec(codecName)
		if err != nil {
			return err
		}
		text := strings.Join(args, " ")
		if text == "" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(data)
		}
		v, err := codec.JSONMessageCodec{}.DecodeMessage([]byte(text))
		if err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
		data, err := c.EncodeMessage(v)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), data)
	},
}

var callDecodeCmd = &cobra.Command{
	Use:   "decode-call [hex...]",
	Short: "Decode a method call payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readPayload(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		call, err := methodCodec().DecodeMethodCall(data)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "method:    %s\n", call.Method)
		fmt.Fprintf(out, "arguments: %s\n", codec.FormatIndent(call.Arguments, "  "))
		return nil
	},
}

var envelopeCmd = &cobra.Command{
	Use:   "envelope [hex...]",
	Short: "Decode a method result envelope",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readPayload(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), describeEnvelope(data))
		return nil
	},
}

// describeEnvelope renders a result envelope for display. Malformed input
// is described, not returned as an error.
func describeEnvelope(data []byte) string {
	var b strings.Builder
	result, err := methodCodec().DecodeEnvelope(data)
	var envErr *codec.EnvelopeError
	switch {
	case err == nil:
		fmt.Fprintf(&b, "success: %s\n", codec.FormatIndent(result, "  "))
	case stderrors.As(err, &envErr):
		fmt.Fprintf(&b, "error:   %s\n", envErr.Code)
		if envErr.Message != nil {
			fmt.Fprintf(&b, "message: %s\n", *envErr.Message)
		}
		fmt.Fprintf(&b, "details: %s\n", codec.FormatIndent(envErr.Details, "  "))
		if envErr.Stacktrace != nil {
			fmt.Fprintf(&b, "stacktrace:\n%s\n", *envErr.Stacktrace)
		}
	default:
		fmt.Fprintf(&b, "malformed: %v\n", err)
	}
	return b.String()
}

func init() {
	for _, cmd := range []*cobra.Command{decodeCmd, encodeCmd} {
		addCodecFlags(cmd)
	}
	for _, cmd := range []*cobra.Command{decodeCmd, callDecodeCmd, envelopeCmd} {
		addInputFlags(cmd)
	}
	callDecodeCmd.Flags().BoolVar(&bigEndian, "big-endian", false, "Use big-endian multi-byte values")
	envelopeCmd.Flags().BoolVar(&bigEndian, "big-endian", false, "Use big-endian multi-byte values")
	encodeCmd.Flags().BoolVar(&rawOutput, "raw", false, "Write raw bytes instead of hex")
}
