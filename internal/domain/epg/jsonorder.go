package epg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/buger/jsonparser"
)

// member is one key of an ordered JSON object. value is either a canonical
// compact rawValue or one of string, int64, nil, object, []object.
type member struct {
	key   string
	value any
}

type object []member

type rawValue []byte

func (o object) get(key string) (any, bool) {
	for _, m := range o {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

func (o object) without(key string) object {
	out := make(object, 0, len(o))
	for _, m := range o {
		if m.key != key {
			out = append(out, m)
		}
	}
	return out
}

// insertAfter places m right behind anchor. Without the anchor it lands at
// the second position.
func (o object) insertAfter(anchor string, m member) object {
	pos := -1
	for i, existing := range o {
		if existing.key == anchor {
			pos = i
			break
		}
	}
	idx := pos + 1
	if pos < 0 {
		idx = min(1, len(o))
	}
	out := make(object, 0, len(o)+1)
	out = append(out, o[:idx]...)
	out = append(out, m)
	return append(out, o[idx:]...)
}

// decodeObject walks the top level members of payload in document order.
// Nested values are re-encoded canonically so stored escapes such as "\/"
// or "\u4e2d" come out as plain text.
func decodeObject(payload []byte) (object, error) {
	var out object
	err := jsonparser.ObjectEach(payload, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		name := string(key)
		if dataType == jsonparser.String {
			value = append(append([]byte{'"'}, value...), '"')
		}
		canonical, err := canonicalize(value)
		if err != nil {
			return fmt.Errorf("member %q: %w", name, err)
		}
		out = append(out, member{key: name, value: canonical})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func canonicalize(raw []byte) (rawValue, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var buf bytes.Buffer
	if err := copyValue(dec, &buf); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after value")
	}
	return rawValue(buf.Bytes()), nil
}

func copyValue(dec *json.Decoder, buf *bytes.Buffer) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch v := tok.(type) {
	case json.Delim:
		closing := byte('}')
		if v == '[' {
			closing = ']'
		}
		buf.WriteByte(byte(v))
		for first := true; dec.More(); first = false {
			if !first {
				buf.WriteByte(',')
			}
			if v == '{' {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				writeString(buf, keyTok.(string))
				buf.WriteByte(':')
			}
			if err := copyValue(dec, buf); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
		buf.WriteByte(closing)
	case string:
		writeString(buf, v)
	case json.Number:
		buf.WriteString(v.String())
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case nil:
		buf.WriteString("null")
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}

func writeValue(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case rawValue:
		buf.Write(val)
	case string:
		writeString(buf, val)
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case nil:
		buf.WriteString("null")
	case object:
		buf.WriteByte('{')
		for i, m := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, m.key)
			buf.WriteByte(':')
			writeValue(buf, m.value)
		}
		buf.WriteByte('}')
	case []object:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeValue(buf, item)
		}
		buf.WriteByte(']')
	default:
		panic(fmt.Sprintf("epg: unsupported json value %T", v))
	}
}

// render serializes v with four space indentation.
func render(v any) []byte {
	var compact bytes.Buffer
	writeValue(&compact, v)
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return compact.Bytes()
	}
	return out.Bytes()
}
