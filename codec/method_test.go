package codec

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/platform-channels/errors"
)

func strPtr(s string) *string { return &s }

func TestMethodCallRoundTrip(t *testing.T) {
	calls := []MethodCall{
		{Method: "getBatteryLevel"},
		{Method: "open", Arguments: MapOf(String("url"), String("https://example.com"), String("inApp"), Bool(true))},
		{Method: "", Arguments: List{Int32(1), Float64(2)}},
	}
	for _, call := range calls {
		data, err := StandardMethod.EncodeMethodCall(call)
		if err != nil {
			t.Fatalf("encode %q: %v", call.Method, err)
		}
		got, err := StandardMethod.DecodeMethodCall(data)
		if err != nil {
			t.Fatalf("decode %q: %v", call.Method, err)
		}
		if got.Method != call.Method || !Equal(got.Arguments, call.Arguments) {
			t.Errorf("got %q %s, want %q %s", got.Method, Format(got.Arguments), call.Method, Format(call.Arguments))
		}
	}
}

func TestMethodCallArgument(t *testing.T) {
	call := MethodCall{Method: "m", Arguments: MapOf(String("id"), Int32(4))}
	if v, ok := call.Argument("id"); !ok || v != Int32(4) {
		t.Errorf("Argument(id) = %v, %v", v, ok)
	}
	if call.HasArgument("missing") {
		t.Error("HasArgument(missing) = true")
	}
	if (MethodCall{Arguments: Int32(1)}).HasArgument("id") {
		t.Error("non-map arguments reported a key")
	}
}

func TestDecodeMethodCallCorrupted(t *testing.T) {
	valid, _ := StandardMethod.EncodeMethodCall(MethodCall{Method: "m", Arguments: Int32(1)})
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"method not a string", []byte{3, 1, 0, 0, 0, 0}},
		{"trailing garbage", append(append([]byte{}, valid...), 0xde, 0xad)},
		{"unknown tag", []byte{99}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StandardMethod.DecodeMethodCall(tt.data)
			if !stderrors.Is(err, errors.ErrCorruptedMessage) {
				t.Errorf("got %v, want corrupted_message", err)
			}
		})
	}
}

func TestEnvelopeSuccess(t *testing.T) {
	for _, v := range sampleValues() {
		data, err := StandardMethod.EncodeSuccessEnvelope(v)
		if err != nil {
			t.Fatal(err)
		}
		if data[0] != 0 {
			t.Fatalf("flag = %d", data[0])
		}
		got, err := StandardMethod.DecodeEnvelope(data)
		if err != nil {
			t.Fatalf("decode %s: %v", Format(v), err)
		}
		if !Equal(got, v) {
			t.Errorf("got %s, want %s", Format(got), Format(v))
		}
	}
}

func TestEnvelopeError(t *testing.T) {
	details := MapOf(String("retry"), Bool(false))
	data, err := StandardMethod.EncodeErrorEnvelope("E", strPtr("msg"), details)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != 1 {
		t.Fatalf("flag = %d", data[0])
	}
	_, err = StandardMethod.DecodeEnvelope(data)
	var env *EnvelopeError
	if !stderrors.As(err, &env) {
		t.Fatalf("got %v, want *EnvelopeError", err)
	}
	if env.Code != "E" || env.Message == nil || *env.Message != "msg" || !Equal(env.Details, details) {
		t.Errorf("got %+v", env)
	}
	if env.Stacktrace != nil {
		t.Errorf("unexpected stacktrace %q", *env.Stacktrace)
	}
	if env.Error() != "platform error E: msg" {
		t.Errorf("Error() = %q", env.Error())
	}
}

func TestEnvelopeErrorNullMessage(t *testing.T) {
	data, err := StandardMethod.EncodeErrorEnvelope("UNAVAILABLE", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 7, 11, 'U', 'N', 'A', 'V', 'A', 'I', 'L', 'A', 'B', 'L', 'E', 0, 0}
	if string(data) != string(want) {
		t.Fatalf("got % x, want % x", data, want)
	}
	_, err = StandardMethod.DecodeEnvelope(data)
	var env *EnvelopeError
	if !stderrors.As(err, &env) || env.Message != nil || !IsNull(env.Details) {
		t.Fatalf("got %v", err)
	}
	if env.Error() != "platform error UNAVAILABLE" {
		t.Errorf("Error() = %q", env.Error())
	}
}

func TestEnvelopeStacktrace(t *testing.T) {
	data, err := StandardMethod.EncodeErrorEnvelopeWithStacktrace("E", nil, Int32(3), "at main()")
	if err != nil {
		t.Fatal(err)
	}
	_, err = StandardMethod.DecodeEnvelope(data)
	var env *EnvelopeError
	if !stderrors.As(err, &env) {
		t.Fatalf("got %v", err)
	}
	if env.Stacktrace == nil || *env.Stacktrace != "at main()" || env.Details != Int32(3) {
		t.Errorf("got %+v", env)
	}
}

func TestEnvelopeTracedDetails(t *testing.T) {
	details := &Traced{Details: String("raw"), Trace: "boom\n\tat handler"}
	data, err := StandardMethod.EncodeErrorEnvelope("E", nil, details)
	if err != nil {
		t.Fatal(err)
	}
	_, err = StandardMethod.DecodeEnvelope(data)
	var env *EnvelopeError
	if !stderrors.As(err, &env) {
		t.Fatalf("got %v", err)
	}
	if env.Details != String("boom\n\tat handler") {
		t.Errorf("details = %s, want the trace", Format(env.Details))
	}
}

func TestEnvelopeSuccessFlagWithLeftoverFallsThrough(t *testing.T) {
	// flag 0, result "X", then code "C", null message, null details
	data := []byte{0, 7, 1, 'X', 7, 1, 'C', 0, 0}
	_, err := StandardMethod.DecodeEnvelope(data)
	var env *EnvelopeError
	if !stderrors.As(err, &env) || env.Code != "C" {
		t.Fatalf("got %v, want envelope error C", err)
	}
}

func TestEnvelopeCorrupted(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad flag", []byte{2, 0}},
		{"code not string", []byte{1, 3, 1, 0, 0, 0, 0, 0}},
		{"message wrong type", []byte{1, 7, 1, 'E', 1, 0}},
		{"missing details", []byte{1, 7, 1, 'E', 0}},
		{"stacktrace wrong type", []byte{1, 7, 1, 'E', 0, 0, 1}},
		{"trailing after stacktrace", []byte{1, 7, 1, 'E', 0, 0, 0, 0}},
		{"success with garbage", []byte{0, 0, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StandardMethod.DecodeEnvelope(tt.data)
			if !stderrors.Is(err, errors.ErrCorruptedMessage) {
				t.Errorf("got %v, want corrupted_message", err)
			}
			var env *EnvelopeError
			if stderrors.As(err, &env) {
				t.Errorf("corrupted input decoded as envelope error %+v", env)
			}
		})
	}
}
