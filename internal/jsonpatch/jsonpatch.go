// Package jsonpatch computes and applies RFC 6902 patches between entity snapshots.
//
// Diff is used by clients to submit only the fields that changed; Apply is used by
// the catalog service to merge a submitted patch into the stored entity.
package jsonpatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	evanphx "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"
)

// ContentType is the media type of a JSON Patch document
const ContentType = "application/json-patch+json"

// Patch is an ordered list of patch operations
type Patch = jsondiff.Patch

// Operation is a single patch operation
type Operation = jsondiff.Operation

var (
	// ErrEmptyPatch is returned when a patch contains no operations
	ErrEmptyPatch = errors.New("patch contains no operations")
	// ErrReadOnlyPath is returned when a patch touches a field clients cannot change
	ErrReadOnlyPath = errors.New("patch modifies a read-only field")
)

// Diff returns the minimal set of operations turning prior into proposed.
// It never fails: snapshots that cannot be encoded produce an empty patch,
// and identical snapshots produce an empty patch.
func Diff(prior, proposed any) Patch {
	patch, err := jsondiff.Compare(prior, proposed)
	if err != nil {
		return Patch{}
	}
	if patch == nil {
		return Patch{}
	}
	return patch
}

// Marshal encodes a patch as a JSON array; an empty patch encodes as "[]"
func Marshal(p Patch) ([]byte, error) {
	if len(p) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

// Decode parses a JSON Patch document into operations
func Decode(raw []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode patch: %w", err)
	}
	return p, nil
}

// TopLevelField returns the first segment of an operation path ("/description" -> "description")
func TopLevelField(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.Index(trimmed, "/"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.ReplaceAll(trimmed, "~1", "/")
	return strings.ReplaceAll(trimmed, "~0", "~")
}

// CheckWritable rejects patches whose operations touch fields outside writable
func CheckWritable(p Patch, writable map[string]bool) error {
	if len(p) == 0 {
		return ErrEmptyPatch
	}
	for _, op := range p {
		field := TopLevelField(op.Path)
		if !writable[field] {
			return fmt.Errorf("%w: %s", ErrReadOnlyPath, field)
		}
		if op.From != "" && !writable[TopLevelField(op.From)] {
			return fmt.Errorf("%w: %s", ErrReadOnlyPath, TopLevelField(op.From))
		}
	}
	return nil
}

// Apply applies raw to doc and decodes the result into out. out is zeroed
// first so removed keys come back empty. doc and out may point to the same value.
func Apply(doc any, raw []byte, out any) error {
	original, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	patch, err := evanphx.DecodePatch(raw)
	if err != nil {
		return fmt.Errorf("failed to decode patch: %w", err)
	}
	modified, err := patch.Apply(original)
	if err != nil {
		return fmt.Errorf("failed to apply patch: %w", err)
	}
	if v := reflect.ValueOf(out); v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}
	if err := json.Unmarshal(modified, out); err != nil {
		return fmt.Errorf("failed to decode patched document: %w", err)
	}
	return nil
}
