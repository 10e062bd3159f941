package gateway

import (
	"encoding/json"
	"net/url"
	"strings"
)

// RawSQL marks a value that is spliced into statement text verbatim instead
// of being bound as a parameter. Values of this type must only come from the
// fixed constants below, never from user input.
type RawSQL string

// RawNow is the only raw fragment the gateway itself produces.
const RawNow = RawSQL("NOW()")

// Record is an ordered column -> value mapping. Insertion order is preserved
// because the SQL builder derives both the statement text and the bound-value
// list from a single traversal of the keys; reordering one without the other
// would silently put values in the wrong columns.
type Record struct {
	keys   []string
	values map[string]any
}

func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

func (r *Record) Set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// SetIfAbsent sets key only when the caller did not already supply a value.
func (r *Record) SetIfAbsent(key string, value any) {
	if _, ok := r.values[key]; ok {
		return
	}
	r.Set(key, value)
}

func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the column names in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Record) Len() int {
	return len(r.keys)
}

// DecodeBody parses a request body into a Record by content type: JSON
// objects, form-encoded pairs, or raw text that happens to be JSON. Anything
// unparseable yields an empty record, not an error; downstream callers
// depend on that leniency.
func DecodeBody(contentType string, body []byte) *Record {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "application/x-www-form-urlencoded") {
		return recordFromForm(string(body))
	}
	// JSON, or raw-text-as-JSON fallback.
	return recordFromJSON(body)
}

// recordFromJSON decodes a top-level JSON object preserving key order, which
// encoding/json's map decoding does not. Numbers stay json.Number so large
// ids survive the round trip.
func recordFromJSON(body []byte) *Record {
	rec := NewRecord()
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return rec
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return rec
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return NewRecord()
		}
		key, ok := keyTok.(string)
		if !ok {
			return NewRecord()
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return NewRecord()
		}
		rec.Set(key, value)
	}
	return rec
}

// recordFromForm splits pairs manually instead of url.ParseQuery so that
// field order is kept.
func recordFromForm(body string) *Record {
	rec := NewRecord()
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := unescapeForm(key)
		if err != nil {
			continue
		}
		v, err := unescapeForm(value)
		if err != nil {
			continue
		}
		rec.Set(k, v)
	}
	return rec
}

func unescapeForm(s string) (string, error) {
	return url.QueryUnescape(strings.ReplaceAll(s, "+", " "))
}
