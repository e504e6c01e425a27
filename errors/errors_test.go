package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhaseDecode,
				Kind:      KindCorruptedMessage,
				Channel:   "flutter/platform",
				Path:      []string{"args", "0"},
				Offset:    12,
				HasOffset: true,
				ValueType: "Float64",
				Detail:    "bad alignment",
			},
			contains: []string{"[decode]", "corrupted_message", "flutter/platform", "args.0", "offset 12", "Float64", "bad alignment"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfRange,
			},
			contains: []string{"[decode]", "out_of_range"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseTransport,
				Kind:   KindUnsupported,
				Detail: "send failed",
				Cause:  errors.New("connection reset"),
			},
			contains: []string{"[transport]", "unsupported", "send failed", "caused by", "connection reset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_OffsetOmittedWhenUnset(t *testing.T) {
	err := &Error{Phase: PhaseEncode, Kind: KindUnsupported, Offset: 0}
	if strings.Contains(err.Error(), "offset") {
		t.Errorf("unexpected offset in %q", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindOverflow,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindCorruptedMessage,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindCorruptedMessage}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindCorruptedMessage}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindOutOfRange}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrCorruptedMessage) {
		t.Error("errors.Is should match template")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDispatch, KindInvalidInput).
		Channel("x").
		Path("map", "key").
		ValueType("String").
		Offset(7).
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "int").
		Build()

	if err.Phase != PhaseDispatch {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDispatch)
	}
	if err.Kind != KindInvalidInput {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidInput)
	}
	if err.Channel != "x" {
		t.Errorf("Channel = %q, want x", err.Channel)
	}
	if len(err.Path) != 2 || err.Path[0] != "map" {
		t.Errorf("Path = %v", err.Path)
	}
	if !err.HasOffset || err.Offset != 7 {
		t.Errorf("Offset = %d (set %v), want 7", err.Offset, err.HasOffset)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if err.Cause != cause {
		t.Error("Cause not set")
	}
	if err.Detail != "expected string, got int" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err   *Error
		phase Phase
		kind  Kind
		want  string
	}{
		{OutOfRange(3, 8, 5), PhaseDecode, KindOutOfRange, "need 8 bytes"},
		{CorruptedMessage(0, "envelope"), PhaseDecode, KindCorruptedMessage, "envelope"},
		{UnknownTag(1, 99), PhaseDecode, KindCorruptedMessage, "unknown type tag 99"},
		{TrailingBytes(4, 2), PhaseDecode, KindCorruptedMessage, "2 trailing bytes"},
		{InvalidUTF8(PhaseDecode, nil, []byte{0xff}), PhaseDecode, KindInvalidUTF8, "ff"},
		{Unsupported(PhaseEncode, "cyclic value"), PhaseEncode, KindUnsupported, "cyclic value"},
		{Overflow(PhaseEncode, nil, 1<<40, "uint32"), PhaseEncode, KindOverflow, "overflows uint32"},
		{DoubleReply("ch"), PhaseReply, KindDoubleReply, "already submitted"},
		{Closed(PhaseSend, "messenger"), PhaseSend, KindClosed, "messenger is closed"},
		{InvalidInput(PhaseConfig, "workers < 1"), PhaseConfig, KindInvalidInput, "workers < 1"},
		{NotFound(PhaseDispatch, "channel", "x"), PhaseDispatch, KindNotFound, `channel "x" not found`},
		{Transport("ch", errors.New("eof")), PhaseTransport, KindUnsupported, "eof"},
	}

	for _, tt := range tests {
		if tt.err.Phase != tt.phase || tt.err.Kind != tt.kind {
			t.Errorf("%v: got [%s] %s", tt.err, tt.err.Phase, tt.err.Kind)
		}
		if !strings.Contains(tt.err.Error(), tt.want) {
			t.Errorf("%q does not contain %q", tt.err.Error(), tt.want)
		}
	}
}

func TestCorruptedMessage_NegativeOffset(t *testing.T) {
	err := CorruptedMessage(-1, "empty")
	if err.HasOffset {
		t.Error("negative offset should not be recorded")
	}
}
