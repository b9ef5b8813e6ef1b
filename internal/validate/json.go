package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

var errTrailingData = errors.New("unexpected data after top-level value")

// canonicalJSON re-serializes a JSON document compactly. Object keys keep
// their document order except that integer keys come first in ascending
// order, a repeated key keeps its first position with its last value,
// strings are re-escaped and numbers are printed in shortest form, so "1.0"
// and "1" serialize the same.
func canonicalJSON(doc string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	var out bytes.Buffer
	if err := writeValue(dec, &out); err != nil {
		return "", err
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", errTrailingData
	}
	return out.String(), nil
}

func writeValue(dec *json.Decoder, out *bytes.Buffer) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return writeObject(dec, out)
		case '[':
			return writeArray(dec, out)
		default:
			return errors.New("unexpected delimiter " + v.String())
		}
	case string:
		return writeString(out, v)
	case json.Number:
		return writeNumber(out, v)
	case bool:
		out.WriteString(strconv.FormatBool(v))
	case nil:
		out.WriteString("null")
	}
	return nil
}

func writeObject(dec *json.Decoder, out *bytes.Buffer) error {
	var keys []string
	values := map[string][]byte{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("object key is not a string")
		}
		var value bytes.Buffer
		if err := writeValue(dec, &value); err != nil {
			return err
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = value.Bytes()
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, aIndex := arrayIndex(keys[i])
		b, bIndex := arrayIndex(keys[j])
		if aIndex && bIndex {
			return a < b
		}
		return aIndex && !bIndex
	})
	out.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			out.WriteByte(',')
		}
		if err := writeString(out, key); err != nil {
			return err
		}
		out.WriteByte(':')
		out.Write(values[key])
	}
	out.WriteByte('}')
	return nil
}

// arrayIndex reports whether key is a canonical unsigned integer below
// 2^32-1. Such keys enumerate first, in ascending order.
func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return n, true
}

func writeArray(dec *json.Decoder, out *bytes.Buffer) error {
	out.WriteByte('[')
	first := true
	for dec.More() {
		if !first {
			out.WriteByte(',')
		}
		first = false
		if err := writeValue(dec, out); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	out.WriteByte(']')
	return nil
}

func writeString(out *bytes.Buffer, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	out.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return nil
}

func writeNumber(out *bytes.Buffer, n json.Number) error {
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return err
	}
	if f == 0 {
		// Negative zero prints as 0.
		f = 0
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		out.WriteString(strconv.FormatFloat(f, 'e', -1, 64))
		return nil
	}
	out.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}
