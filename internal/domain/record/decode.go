package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kailas-cloud/locusmap/internal/domain"
)

// Records are decoded token by token: mapping values must keep their
// source key order, which encoding/json maps do not preserve.

// DecodeRecords parses a JSON array of records or a JSON object whose
// values are records. For objects the key order becomes the record order.
func DecodeRecords(data []byte) ([]Record, error) {
	dec := newDecoder(data)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '[' && delim != '{') {
		return nil, fmt.Errorf("%w: records must be a JSON array or object", domain.ErrInvalidRecord)
	}

	var out []Record
	for dec.More() {
		if delim == '{' {
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
			}
		}
		r, err := readRecord(dec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(out), err)
		}
		out = append(out, r)
	}
	if err := closeDelim(dec); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeRecord parses a single JSON object into a record.
func DecodeRecord(data []byte) (Record, error) {
	dec := newDecoder(data)
	r, err := readRecord(dec)
	if err != nil {
		return Record{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Record{}, fmt.Errorf("%w: trailing data after record", domain.ErrInvalidRecord)
	}
	return r, nil
}

func newDecoder(data []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec
}

func closeDelim(dec *json.Decoder) error {
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	return nil
}

func readRecord(dec *json.Decoder) (Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Record{}, fmt.Errorf("%w: record must be a JSON object", domain.ErrInvalidRecord)
	}

	r := Record{fields: make(map[string]Value)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
		}
		key, _ := keyTok.(string)
		v, err := readValue(dec)
		if err != nil {
			return Record{}, fmt.Errorf("field %q: %w", key, err)
		}
		r.set(key, v)
	}
	return r, closeDelim(dec)
}

func readValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	d, isDelim := tok.(json.Delim)
	if !isDelim {
		if tok == nil {
			return Value{}, nil
		}
		s, err := scalarFromToken(tok)
		if err != nil {
			return Value{}, err
		}
		return ScalarValue(s), nil
	}

	switch d {
	case '[':
		v := Value{kind: KindSequence, items: []Scalar{}}
		for dec.More() {
			s, err := readScalar(dec)
			if err != nil {
				return Value{}, err
			}
			v.items = append(v.items, s)
		}
		return v, closeDelim(dec)
	case '{':
		v := Value{kind: KindMapping, entries: []Entry{}}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return Value{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
			}
			key, _ := keyTok.(string)
			s, err := readScalar(dec)
			if err != nil {
				return Value{}, err
			}
			v.entries = append(v.entries, Entry{Key: key, Value: s})
		}
		return v, closeDelim(dec)
	default:
		return Value{}, fmt.Errorf("%w: unexpected %q", domain.ErrInvalidRecord, d)
	}
}

// readScalar reads one element of a collection. Nested composites are
// kept as their compact JSON text.
func readScalar(dec *json.Decoder) (Scalar, error) {
	tok, err := dec.Token()
	if err != nil {
		return Scalar{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return scalarFromToken(tok)
	}
	nested, err := readAny(dec, d)
	if err != nil {
		return Scalar{}, err
	}
	b, err := json.Marshal(nested)
	if err != nil {
		return Scalar{}, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	return String(string(b)), nil
}

func readAny(dec *json.Decoder, open json.Delim) (any, error) {
	if open == '[' {
		arr := []any{}
		for dec.More() {
			v, err := nextAny(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, closeDelim(dec)
	}
	obj := map[string]any{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
		}
		key, _ := keyTok.(string)
		v, err := nextAny(dec)
		if err != nil {
			return nil, err
		}
		obj[key] = v
	}
	return obj, closeDelim(dec)
}

func nextAny(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	if d, ok := tok.(json.Delim); ok {
		return readAny(dec, d)
	}
	return tok, nil
}

func scalarFromToken(tok json.Token) (Scalar, error) {
	switch t := tok.(type) {
	case string:
		return String(t), nil
	case json.Number:
		s, err := numberLiteral(t.String())
		if err != nil {
			return Scalar{}, fmt.Errorf("%w: number %q: %w", domain.ErrInvalidRecord, t, err)
		}
		return s, nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return Scalar{}, fmt.Errorf("%w: unexpected token %v", domain.ErrInvalidRecord, tok)
	}
}
