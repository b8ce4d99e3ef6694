package cid

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/medium-stack/mstack/common/errs"
)

// MarshalCanonical encodes v as canonical JSON: object keys sorted, no
// insignificant whitespace, numbers in their shortest round-trip form with
// integral values printed without a fraction. Equal values always produce
// identical bytes, so the encoding is safe to hash.
func MarshalCanonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(errs.ErrBadCanonical, "%v", err)
	}
	return Canonicalize(raw)
}

// Canonicalize rewrites an arbitrary JSON document into canonical form.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errs.Wrap(errs.ErrBadCanonical, "%v", err)
	}
	if dec.More() {
		return nil, errs.Wrap(errs.ErrBadCanonical, "trailing data after document")
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		s, err := canonicalNumber(val)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case string:
		b, err := json.Marshal(val)
		if err != nil {
			return errs.Wrap(errs.ErrBadCanonical, "%v", err)
		}
		buf.Write(b)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return errs.Wrap(errs.ErrBadCanonical, "%v", err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return errs.Wrap(errs.ErrBadCanonical, "unsupported value %T", v)
	}
	return nil
}

// canonicalNumber normalizes a JSON number so that "2", "2.0" and "2e0" all
// encode identically.
func canonicalNumber(n json.Number) (string, error) {
	s := string(n)

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return strconv.FormatUint(u, 10), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", errs.Wrap(errs.ErrBadCanonical, "number %q: %v", s, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", errs.Wrap(errs.ErrBadCanonical, "number %q out of range", s)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', 0, 64), nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
