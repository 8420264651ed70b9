package msgpack

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"strconv"

	"github.com/richinsley/msgpack/shape"
)

// jsonwriter.go implements ConvertToJson, the external-collaborator
// debugging pretty-printer: it drives a Reader token by token through
// DecodeDynamic and writes the result as JSON text. Binary and extension
// payloads, which have no JSON representation, are emitted as base64
// strings rather than silently dropped, so the output stays valid JSON
// without claiming false precision.

// ConvertToJson reads one complete msgpack value from r and writes its
// JSON rendering to w, for inspection/debugging rather than round-trip
// fidelity (a map with non-string keys has no faithful JSON form, so
// integer and boolean keys are rendered as JSON string keys holding their
// decimal or true/false text, and keys of any other kind as "?").
func ConvertToJson(r *Reader, w io.Writer, provider shape.Provider) error {
	ctx := NewContext(nil, provider)
	v, err := DecodeDynamic(r, ctx)
	if err != nil {
		return err
	}
	return writeJSON(w, v)
}

func writeJSON(w io.Writer, v Value) error {
	switch v.Kind {
	case KindNull:
		_, err := io.WriteString(w, "null")
		return err
	case KindBool:
		if v.Bool {
			_, err := io.WriteString(w, "true")
			return err
		}
		_, err := io.WriteString(w, "false")
		return err
	case KindUInt:
		_, err := io.WriteString(w, strconv.FormatUint(v.UInt, 10))
		return err
	case KindSInt:
		_, err := io.WriteString(w, strconv.FormatInt(v.SInt, 10))
		return err
	case KindFloat32:
		_, err := io.WriteString(w, strconv.FormatFloat(float64(v.Float32), 'g', -1, 32))
		return err
	case KindFloat64:
		_, err := io.WriteString(w, strconv.FormatFloat(v.Float64, 'g', -1, 64))
		return err
	case KindString:
		return writeJSONString(w, v.String)
	case KindBytes:
		return writeJSONString(w, base64.StdEncoding.EncodeToString(v.Bytes))
	case KindArray:
		if _, err := io.WriteString(w, "["); err != nil {
			return err
		}
		for i, elem := range v.Array {
			if i > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			if err := writeJSON(w, elem); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "]")
		return err
	case KindMap:
		if _, err := io.WriteString(w, "{"); err != nil {
			return err
		}
		if v.Map != nil {
			for i, e := range v.Map.entries {
				if i > 0 {
					if _, err := io.WriteString(w, ","); err != nil {
						return err
					}
				}
				if err := writeJSONMapKey(w, e.key); err != nil {
					return err
				}
				if _, err := io.WriteString(w, ":"); err != nil {
					return err
				}
				if err := writeJSON(w, e.value); err != nil {
					return err
				}
			}
		}
		_, err := io.WriteString(w, "}")
		return err
	case KindExtension:
		if !v.Timestamp.IsZero() {
			return writeJSONString(w, v.Timestamp.Format("2006-01-02T15:04:05.999999999Z07:00"))
		}
		return writeJSONString(w, base64.StdEncoding.EncodeToString(v.ExtBody))
	default:
		return newErrorf(CodeUnexpectedToken, "jsonwriter: unrecognized dynamic value kind %d", v.Kind)
	}
}

// writeJSONMapKey renders a map key as a JSON object key, stringifying
// non-string keys (JSON object keys are always strings; msgpack map keys
// are not).
func writeJSONMapKey(w io.Writer, k Value) error {
	if k.Kind == KindString {
		return writeJSONString(w, k.String)
	}
	var buf []byte
	switch k.Kind {
	case KindUInt:
		buf = strconv.AppendUint(buf, k.UInt, 10)
	case KindSInt:
		buf = strconv.AppendInt(buf, k.SInt, 10)
	case KindBool:
		buf = strconv.AppendBool(buf, k.Bool)
	default:
		buf = []byte("?")
	}
	return writeJSONString(w, string(buf))
}

func writeJSONString(w io.Writer, s string) error {
	quoted, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(quoted)
	return err
}
