package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Decode parses one JSON object into a Record of the given kind, keeping the
// field order of the payload. It does not check the record against a schema.
func Decode(data []byte, kind Kind) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Record{}, fmt.Errorf("%w: expected object", ErrMalformed)
	}
	r := Record{Kind: kind}
	if err := decodeObject(dec, "", &r, true); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return r, nil
}

// DecodeList parses either a bare JSON array of records or an object that
// wraps the array under the schema's list key (e.g. "microstructures"). Every
// record is checked against s; the first violation is returned as an
// *InputError.
func DecodeList(data []byte, s Schema) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	var items []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw, ok := wrapper[s.ListKey]
		if !ok {
			return nil, fmt.Errorf("%w: no %q list in payload", ErrMalformed, s.ListKey)
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformed, s.ListKey, err)
		}
	default:
		return nil, fmt.Errorf("%w: expected array or object", ErrMalformed)
	}

	out := make([]Record, 0, len(items))
	for i, raw := range items {
		r, err := Decode(raw, s.Kind)
		if err != nil {
			return nil, &InputError{Index: i, Err: err}
		}
		if err := s.Check(r); err != nil {
			var ie *InputError
			if errors.As(err, &ie) {
				ie.Index = i
			}
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func decodeObject(dec *json.Decoder, prefix string, r *Record, top bool) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		if top && key == "evidence" {
			ev, err := decodeEvidence(dec)
			if err != nil {
				return fmt.Errorf("evidence: %w", err)
			}
			r.Evidence = ev
			continue
		}
		name := prefix + key
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok && d == '{' {
			if err := decodeObject(dec, name+".", r, false); err != nil {
				return err
			}
			continue
		}
		v, err := valueFromToken(dec, tok)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		r.Fields = append(r.Fields, Field{Name: name, Value: v})
	}
	_, err := dec.Token() // closing '}'
	return err
}

func valueFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Number:
		return numberValue(t), nil
	case json.Delim:
		if t == '[' {
			items, err := readArray(dec)
			if err != nil {
				return Value{}, err
			}
			return ListValue(items), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// readAny decodes the next complete JSON value into plain Go values.
func readAny(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return anyFromToken(dec, tok)
}

func anyFromToken(dec *json.Decoder, tok json.Token) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '[':
		return readArray(dec)
	case '{':
		obj := map[string]any{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := kt.(string)
			v, err := readAny(dec)
			if err != nil {
				return nil, err
			}
			obj[key] = v
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", d)
}

func readArray(dec *json.Decoder) ([]any, error) {
	items := []any{}
	for dec.More() {
		v, err := readAny(dec)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeEvidence(dec *json.Decoder) (*Evidence, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		if _, err := anyFromToken(dec, tok); err != nil {
			return nil, err
		}
		return nil, nil
	}
	var ev Evidence
	hasSnippet := false
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := kt.(string)
		v, err := readAny(dec)
		if err != nil {
			return nil, err
		}
		s, isString := v.(string)
		switch key {
		case "snippet":
			if isString {
				ev.Snippet = s
				hasSnippet = true
			}
		case "source":
			if isString {
				ev.Source = s
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if !hasSnippet {
		return nil, nil
	}
	return &ev, nil
}
