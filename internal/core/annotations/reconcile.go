package annotations

import (
	stderrs "errors"
	"sort"
	"strings"

	perr "challengeutils/internal/platform/errors"
)

// Input is the tagged payload handed to Update: either a flat key/value map
// or an already-typed set carrying its own visibility flags. The shape is
// decided once at the boundary, never re-checked downstream
type Input struct {
	flat  Map
	typed TypedSet
	isTyp bool
}

// Flat wraps a flat map. Visibility is decided by UpdateOptions.ToPublic
func Flat(m Map) Input { return Input{flat: m} }

// Typed wraps an already-typed payload; each record keeps its own flag
func Typed(ts TypedSet) Input { return Input{typed: ts, isTyp: true} }

// LooksTyped reports whether a decoded JSON/YAML document has the typed wire
// shape: every key is a recognized structural or kind key. One unrecognized
// key makes the whole document flat, so a document mixing kind lists with
// plain pairs fails fast on the list value downstream instead of silently
// dropping the plain pairs. Boundary helper for building the right Input
// variant from a user-supplied file or body
func LooksTyped(doc map[string]any) bool {
	if len(doc) == 0 {
		return false
	}
	for key := range doc {
		switch key {
		case "objectId", "scopeId", string(KindString), string(KindLong), string(KindDouble):
		default:
			return false
		}
	}
	return true
}

// UpdateOptions steers a single reconciliation
type UpdateOptions struct {
	// ToPublic makes a Flat input land in the public domain instead of the
	// private default. Ignored for Typed inputs
	ToPublic bool

	// Force lets an incoming key displace the same key from the opposite
	// visibility domain instead of failing with a ConflictError
	Force bool
}

// ConflictError reports keys whose requested visibility contradicts their
// existing visibility in the opposite domain. Keys are sorted and complete,
// so one correction cycle fixes everything
type ConflictError struct {
	Keys []string
}

func (e *ConflictError) Error() string {
	return "annotation visibility conflict for key(s): " + strings.Join(e.Keys, ", ") +
		"; rename the key(s) or pass force to switch visibility"
}

// ConflictKeys unwraps err and returns the colliding keys, or nil when err is
// not a visibility conflict
func ConflictKeys(err error) []string {
	var ce *ConflictError
	if stderrs.As(err, &ce) {
		return ce.Keys
	}
	return nil
}

// switchVisibility is the permission-switch pass. incoming is the added map
// of the opposite domain; existing is the current map of this domain. With no
// key overlap existing comes back untouched. With overlap and force, the
// overlapping keys are dropped from existing so the later merge can install
// them on the other side without a duplicate. Without force the overlap is a
// ConflictError and nothing is mutated
func switchVisibility(incoming, existing Map, force bool) (Map, error) {
	var conflicts []string
	for key := range existing {
		if _, ok := incoming[key]; ok {
			conflicts = append(conflicts, key)
		}
	}
	if len(conflicts) == 0 {
		return existing, nil
	}
	if !force {
		sort.Strings(conflicts)
		return nil, perr.Wrap(&ConflictError{Keys: conflicts}, perr.ErrorCodeConflict,
			"annotation visibility conflict")
	}
	cleaned := make(Map, len(existing))
	for key, v := range existing {
		if _, ok := incoming[key]; !ok {
			cleaned[key] = v
		}
	}
	return cleaned, nil
}

// Update merges newly supplied annotations into an existing typed set and
// returns the reconciled set. On error the existing set is returned unchanged;
// no partial merge is ever produced.
//
// After a successful Update no key appears in both visibility domains: the
// switch pass evicts a conflicting key from its old domain before the merge
// installs it in the new one
func Update(existing TypedSet, in Input, opts UpdateOptions) (TypedSet, error) {
	existingPrivate := Extract(existing, true)
	existingPublic := Extract(existing, false)

	var addedPrivate, addedPublic Map
	if in.isTyp {
		addedPrivate = Extract(in.typed, true)
		addedPublic = Extract(in.typed, false)
	} else if opts.ToPublic {
		addedPrivate, addedPublic = Map{}, in.flat
	} else {
		addedPrivate, addedPublic = in.flat, Map{}
	}

	// let each side's additions displace conflicting keys from the other side
	cleanPrivate, err := switchVisibility(addedPublic, existingPrivate, opts.Force)
	if err != nil {
		return existing, err
	}
	cleanPublic, err := switchVisibility(addedPrivate, existingPublic, opts.Force)
	if err != nil {
		return existing, err
	}

	finalPrivate := cleanPrivate.clone()
	for key, v := range addedPrivate {
		finalPrivate[key] = v
	}
	finalPublic := cleanPublic.clone()
	for key, v := range addedPublic {
		finalPublic[key] = v
	}

	priv := Encode(finalPrivate, true)
	pub := Encode(finalPublic, false)

	out := TypedSet{ObjectID: existing.ObjectID, ScopeID: existing.ScopeID}
	for _, k := range kinds {
		out.setKind(k, append(priv.byKind(k), pub.byKind(k)...))
	}
	return out, nil
}

// SetVisibility flips the isPrivate flag of the named keys in place across
// all kinds, without touching values and without the switch pass: the caller
// is declaring ground truth, not merging two sources. Unknown keys are
// silently ignored so the operation is an idempotent "ensure visibility"
func SetVisibility(ts TypedSet, keys []string, private bool) TypedSet {
	for _, key := range keys {
		for _, k := range kinds {
			recs := ts.byKind(k)
			for i := range recs {
				if recs[i].Key == key {
					recs[i].IsPrivate = private
					break
				}
			}
		}
	}
	return ts
}
