package service

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"challengeutils/internal/core/annotations"
	perr "challengeutils/internal/platform/errors"
)

// ReadInputFile loads an annotation document from disk and decides its shape
// once: a typed wire payload becomes Typed input, anything else is a flat
// key/value map. JSON and YAML are both accepted; the extension picks the
// decoder, defaulting to JSON
func ReadInputFile(path string) (annotations.Input, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return annotations.Input{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read annotation file %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(b)
	default:
		return ParseJSON(b)
	}
}

// ParseJSON builds an Input from a JSON document. Numbers decode via
// json.Number so integral values stay longs instead of collapsing to doubles
func ParseJSON(b []byte) (annotations.Input, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return annotations.Input{}, perr.Wrap(err, perr.ErrorCodeJSON, "annotation document is not an object")
	}
	if annotations.LooksTyped(doc) {
		var ts annotations.TypedSet
		if err := json.Unmarshal(b, &ts); err != nil {
			return annotations.Input{}, err
		}
		return annotations.Typed(ts), nil
	}
	m, err := annotations.MapOf(doc)
	if err != nil {
		return annotations.Input{}, err
	}
	return annotations.Flat(m), nil
}

// parseYAML builds an Input from a YAML document. A typed-shaped document is
// re-encoded as JSON and run through the wire decoder so values get their
// kind context
func parseYAML(b []byte) (annotations.Input, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return annotations.Input{}, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "annotation document is not a mapping")
	}
	if annotations.LooksTyped(doc) {
		jb, err := json.Marshal(doc)
		if err != nil {
			return annotations.Input{}, perr.Wrap(err, perr.ErrorCodeJSON, "re-encode typed yaml")
		}
		var ts annotations.TypedSet
		if err := json.Unmarshal(jb, &ts); err != nil {
			return annotations.Input{}, err
		}
		return annotations.Typed(ts), nil
	}
	m, err := annotations.MapOf(doc)
	if err != nil {
		return annotations.Input{}, err
	}
	return annotations.Flat(m), nil
}
