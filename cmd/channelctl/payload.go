package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/platform-channels/codec"
)

var (
	codecName string
	bigEndian bool
	inputFile string
	rawOutput bool
)

func addCodecFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&codecName, "codec", "standard", "Message codec: standard|json|cbor")
	cmd.Flags().BoolVar(&bigEndian, "big-endian", false, "Use big-endian multi-byte values (standard codec)")
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "Read the raw payload from a file instead of hex")
}

func selectCodec(name string) (codec.MessageCodec[codec.Value], error) {
	switch name {
	case "standard", "":
		return standardCodec(), nil
	case "json":
		return codec.JSONMessageCodec{}, nil
	case "cbor":
		return codec.CBORMessageCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

func standardCodec() codec.StandardMessageCodec {
	if bigEndian {
		return codec.StandardMessageCodec{Order: binary.BigEndian}
	}
	return codec.Standard
}

func methodCodec() codec.StandardMethodCodec {
	return codec.StandardMethodCodec{Message: standardCodec()}
}

// readPayload returns the payload named by --file, the hex arguments, or
// hex read from stdin, in that order of preference.
func readPayload(args []string, stdin io.Reader) ([]byte, error) {
	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return data, nil
	}
	text := strings.Join(args, "")
	if text == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	return parseHex(text)
}

// parseHex accepts hex digits separated by any whitespace, commas, or an
// optional 0x prefix per byte group.
func parseHex(text string) ([]byte, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == ','
	})
	var clean strings.Builder
	for _, f := range fields {
		clean.WriteString(strings.TrimPrefix(strings.ToLower(f), "0x"))
	}
	data, err := hex.DecodeString(clean.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return data, nil
}

func writeOutput(w io.Writer, data []byte) error {
	if rawOutput {
		_, err := w.Write(data)
		return err
	}
	_, err := fmt.Fprintln(w, hex.EncodeToString(data))
	return err
}
