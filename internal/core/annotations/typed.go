package annotations

import (
	"encoding/json"
	"strconv"

	perr "challengeutils/internal/platform/errors"
)

// Record is one typed annotation on the wire:
// {"key": ..., "value": ..., "isPrivate": ...}
type Record struct {
	Key       string `json:"key"`
	Value     Value  `json:"value"`
	IsPrivate bool   `json:"isPrivate"`
}

// TypedSet is the platform's typed annotation payload. ObjectID and ScopeID
// are structural metadata owned by the platform; they are carried through
// untouched and never take part in extraction or merging
type TypedSet struct {
	ObjectID    string   `json:"objectId,omitempty"`
	ScopeID     string   `json:"scopeId,omitempty"`
	StringAnnos []Record `json:"stringAnnos,omitempty"`
	LongAnnos   []Record `json:"longAnnos,omitempty"`
	DoubleAnnos []Record `json:"doubleAnnos,omitempty"`
}

// byKind returns the record list for a kind
func (ts *TypedSet) byKind(k Kind) []Record {
	switch k {
	case KindString:
		return ts.StringAnnos
	case KindLong:
		return ts.LongAnnos
	case KindDouble:
		return ts.DoubleAnnos
	default:
		return nil
	}
}

// setKind replaces the record list for a kind. A nil or empty list clears the
// field so the kind is omitted from the marshaled payload rather than emitted
// as an empty array; the platform treats those differently
func (ts *TypedSet) setKind(k Kind, recs []Record) {
	if len(recs) == 0 {
		recs = nil
	}
	switch k {
	case KindString:
		ts.StringAnnos = recs
	case KindLong:
		ts.LongAnnos = recs
	case KindDouble:
		ts.DoubleAnnos = recs
	}
}

// Empty reports whether the set carries no records in any kind
func (ts TypedSet) Empty() bool {
	return len(ts.StringAnnos) == 0 && len(ts.LongAnnos) == 0 && len(ts.DoubleAnnos) == 0
}

// wireRecord defers value decoding until the containing kind is known
type wireRecord struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	IsPrivate bool            `json:"isPrivate"`
}

type wireTypedSet struct {
	ObjectID    string       `json:"objectId"`
	ScopeID     string       `json:"scopeId"`
	StringAnnos []wireRecord `json:"stringAnnos"`
	LongAnnos   []wireRecord `json:"longAnnos"`
	DoubleAnnos []wireRecord `json:"doubleAnnos"`
}

// UnmarshalJSON decodes each record list with its kind as context, so an
// integral double like 2 still lands in doubleAnnos instead of being sniffed
// into a long
func (ts *TypedSet) UnmarshalJSON(b []byte) error {
	var w wireTypedSet
	if err := json.Unmarshal(b, &w); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "malformed typed annotations")
	}
	out := TypedSet{ObjectID: w.ObjectID, ScopeID: w.ScopeID}
	for _, kl := range [...]struct {
		kind Kind
		recs []wireRecord
	}{
		{KindString, w.StringAnnos},
		{KindLong, w.LongAnnos},
		{KindDouble, w.DoubleAnnos},
	} {
		if len(kl.recs) == 0 {
			continue
		}
		recs := make([]Record, 0, len(kl.recs))
		for _, wr := range kl.recs {
			v, err := decodeWireValue(kl.kind, wr.Value)
			if err != nil {
				return perr.WithFieldChain(err, wr.Key)
			}
			recs = append(recs, Record{Key: wr.Key, Value: v, IsPrivate: wr.IsPrivate})
		}
		out.setKind(kl.kind, recs)
	}
	*ts = out
	return nil
}

// decodeWireValue parses a raw scalar under a kind. Numeric kinds tolerate
// quoted numbers; some platform client libraries stringify on store
func decodeWireValue(k Kind, raw json.RawMessage) (Value, error) {
	switch k {
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, perr.JSONErrf("stringAnnos value %s is not a string", string(raw))
		}
		return String(s), nil
	case KindLong:
		s := unquote(raw)
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, perr.JSONErrf("longAnnos value %s is not an integer", string(raw))
		}
		return Long(i), nil
	case KindDouble:
		s := unquote(raw)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, perr.JSONErrf("doubleAnnos value %s is not a number", string(raw))
		}
		return Double(f), nil
	default:
		return Value{}, perr.JSONErrf("unknown annotation kind %q", string(k))
	}
}

func unquote(raw json.RawMessage) string {
	s := string(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

// Extract flattens one visibility domain of a typed set into a Map. Reserved
// structural fields are skipped; a nil or empty set yields an empty Map
func Extract(ts TypedSet, private bool) Map {
	out := Map{}
	for _, k := range kinds {
		for _, rec := range ts.byKind(k) {
			if rec.IsPrivate == private {
				out[rec.Key] = rec.Value
			}
		}
	}
	return out
}

// Encode is the inverse of Extract: each entry lands in the kind named by its
// value tag, flagged with the requested visibility. Kinds with no members are
// omitted entirely. A zero Value is a caller bug and panics
func Encode(m Map, private bool) TypedSet {
	var ts TypedSet
	for key, v := range m {
		rec := Record{Key: key, Value: v, IsPrivate: private}
		switch v.Kind() {
		case KindString:
			ts.StringAnnos = append(ts.StringAnnos, rec)
		case KindLong:
			ts.LongAnnos = append(ts.LongAnnos, rec)
		case KindDouble:
			ts.DoubleAnnos = append(ts.DoubleAnnos, rec)
		default:
			panic("annotations: encode of zero value for key " + strconv.Quote(key))
		}
	}
	return ts
}
