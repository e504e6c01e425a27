package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/wippyai/platform-channels/errors"
)

// JSONMessageCodec encodes Values as UTF-8 JSON text.
//
// Object keys must be Strings and keep their order in both directions.
// Whole numbers decode to the narrowest integer variant, other numbers to
// Float64. Bytes encode as base64 strings and typed arrays as JSON arrays;
// neither shape is recovered on decode.
type JSONMessageCodec struct{}

func (JSONMessageCodec) EncodeMessage(message Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, message, nil, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (JSONMessageCodec) DecodeMessage(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.CorruptedMessage(0, "empty message")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := readJSON(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.CorruptedMessage(int(dec.InputOffset()), "trailing data after JSON value")
	}
	return v, nil
}

func writeJSON(buf *bytes.Buffer, v Value, path []string, depth int) error {
	if depth > maxDepth {
		return errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Path(path...).
			Detail("nesting deeper than %d", maxDepth).
			Build()
	}
	switch x := orNull(v).(type) {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(x)))
	case Int32:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case Int64:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case Float64:
		return writeJSONFloat(buf, float64(x), path)
	case String:
		writeJSONString(buf, string(x))
	case *Traced:
		writeJSONString(buf, x.Trace)
	case Bytes:
		writeJSONString(buf, base64.StdEncoding.EncodeToString(x))
	case Int32Array:
		buf.WriteByte('[')
		for i, n := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatInt(int64(n), 10))
		}
		buf.WriteByte(']')
	case Int64Array:
		buf.WriteByte('[')
		for i, n := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatInt(n, 10))
		}
		buf.WriteByte(']')
	case Float32Array:
		buf.WriteByte('[')
		for i, f := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONFloat(buf, float64(f), path); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Float64Array:
		buf.WriteByte('[')
		for i, f := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONFloat(buf, f, path); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case List:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item, append(path, strconv.Itoa(i)), depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Map:
		buf.WriteByte('{')
		for i, e := range x.Entries() {
			key, ok := e.Key.(String)
			if !ok {
				return errors.New(errors.PhaseEncode, errors.KindUnsupported).
					Path(path...).
					ValueType(e.Key.Kind().String()).
					Detail("JSON object keys must be strings").
					Build()
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, string(key))
			buf.WriteByte(':')
			if err := writeJSON(buf, e.Value, append(path, string(key)), depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return errors.Unsupported(errors.PhaseEncode, "unknown value variant")
	}
	return nil
}

func writeJSONFloat(buf *bytes.Buffer, f float64, path []string) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Path(path...).
			Value(f).
			Detail("JSON cannot represent %v", f).
			Build()
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	buf.WriteString(s)
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	// json.Marshal of a string cannot fail
	data, _ := json.Marshal(s)
	buf.Write(data)
}

func readJSON(dec *json.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, errors.CorruptedMessage(int(dec.InputOffset()), "nesting too deep")
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
			Offset(int(dec.InputOffset())).
			Cause(err).
			Detail("json").
			Build()
	}
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return Integer(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, errors.CorruptedMessage(int(dec.InputOffset()), "bad number "+t.String())
		}
		return Float64(f), nil
	case json.Delim:
		switch t {
		case '[':
			list := List{}
			for dec.More() {
				item, err := readJSON(dec, depth+1)
				if err != nil {
					return nil, err
				}
				list = append(list, item)
			}
			if err := closeJSON(dec); err != nil {
				return nil, err
			}
			return list, nil
		case '{':
			m := NewMap(0)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, errors.Wrap(errors.PhaseDecode, errors.KindCorruptedMessage, err, "json object key")
				}
				key, _ := keyTok.(string)
				val, err := readJSON(dec, depth+1)
				if err != nil {
					return nil, err
				}
				m.Set(String(key), val)
			}
			if err := closeJSON(dec); err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return nil, errors.CorruptedMessage(int(dec.InputOffset()), "unexpected JSON token")
}

func closeJSON(dec *json.Decoder) error {
	if _, err := dec.Token(); err != nil {
		return errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
			Offset(int(dec.InputOffset())).
			Cause(err).
			Detail("unterminated JSON container").
			Build()
	}
	return nil
}
