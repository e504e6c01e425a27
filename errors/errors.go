package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode    Phase = "encode"    // value to bytes
	PhaseDecode    Phase = "decode"    // bytes to value
	PhaseDispatch  Phase = "dispatch"  // inbound routing
	PhaseSend      Phase = "send"      // outbound routing
	PhaseReply     Phase = "reply"     // reply completion
	PhaseTransport Phase = "transport" // native transport
	PhaseConfig    Phase = "config"    // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfRange       Kind = "out_of_range"
	KindCorruptedMessage Kind = "corrupted_message"
	KindUnsupported      Kind = "unsupported"
	KindInvalidUTF8      Kind = "invalid_utf8"
	KindOverflow         Kind = "overflow"
	KindDoubleReply      Kind = "double_reply"
	KindClosed           Kind = "closed"
	KindInvalidInput     Kind = "invalid_input"
	KindNotImplemented   Kind = "not_implemented"
	KindNotFound         Kind = "not_found"
)

// Match templates for errors.Is
var (
	ErrOutOfRange       = &Error{Phase: PhaseDecode, Kind: KindOutOfRange}
	ErrCorruptedMessage = &Error{Phase: PhaseDecode, Kind: KindCorruptedMessage}
	ErrDoubleReply      = &Error{Phase: PhaseReply, Kind: KindDoubleReply}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Channel   string
	ValueType string
	Detail    string
	Path      []string
	Offset    int
	HasOffset bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Channel != "" {
		b.WriteString(" on ")
		b.WriteString(e.Channel)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.HasOffset {
		fmt.Fprintf(&b, " (offset %d)", e.Offset)
	}

	if e.ValueType != "" {
		b.WriteString(": type ")
		b.WriteString(e.ValueType)
	}

	if e.Detail != "" {
		if e.ValueType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Channel sets the channel name
func (b *Builder) Channel(name string) *Builder {
	b.err.Channel = name
	return b
}

// ValueType sets the value type name
func (b *Builder) ValueType(t string) *Builder {
	b.err.ValueType = t
	return b
}

// Offset sets the byte offset the error was detected at
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	b.err.HasOffset = true
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfRange creates an error for a read past the end of a buffer
func OutOfRange(offset, want, length int) *Error {
	return &Error{
		Phase:     PhaseDecode,
		Kind:      KindOutOfRange,
		Offset:    offset,
		HasOffset: true,
		Detail:    fmt.Sprintf("need %d bytes, buffer length %d", want, length),
	}
}

// CorruptedMessage creates a corrupted message error
func CorruptedMessage(offset int, detail string) *Error {
	return &Error{
		Phase:     PhaseDecode,
		Kind:      KindCorruptedMessage,
		Offset:    offset,
		HasOffset: offset >= 0,
		Detail:    detail,
	}
}

// UnknownTag creates a corrupted message error for an unrecognized type byte
func UnknownTag(offset int, tag byte) *Error {
	return &Error{
		Phase:     PhaseDecode,
		Kind:      KindCorruptedMessage,
		Offset:    offset,
		HasOffset: true,
		Detail:    fmt.Sprintf("unknown type tag %d", tag),
		Value:     tag,
	}
}

// TrailingBytes creates a corrupted message error for unconsumed input
func TrailingBytes(offset, remaining int) *Error {
	return &Error{
		Phase:     PhaseDecode,
		Kind:      KindCorruptedMessage,
		Offset:    offset,
		HasOffset: true,
		Detail:    fmt.Sprintf("%d trailing bytes", remaining),
		Value:     remaining,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindOverflow,
		Path:      path,
		ValueType: targetType,
		Detail:    fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:     value,
	}
}

// DoubleReply creates an error for a reply completed more than once
func DoubleReply(channel string) *Error {
	return &Error{
		Phase:   PhaseReply,
		Kind:    KindDoubleReply,
		Channel: channel,
		Detail:  "reply already submitted",
	}
}

// Closed creates an error for use of a torn-down component
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", component),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Transport wraps a failure reported by a native transport
func Transport(channel string, cause error) *Error {
	return &Error{
		Phase:   PhaseTransport,
		Kind:    KindUnsupported,
		Channel: channel,
		Detail:  "transport send failed",
		Cause:   cause,
	}
}
