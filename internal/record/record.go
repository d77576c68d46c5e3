// Package record defines the merged vehicle record and the typed values it carries.
//
// A MergedRecord combines the facts returned by the vehicle registry with the
// tri-state answer of the stolen-vehicle register. Records are treated as
// immutable once built; change detection compares them structurally.
package record

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/tidwall/gjson"
)

// StolenKey is the field name under which the stolen status is exposed.
const StolenKey = "is_stolen"

// MergedRecord is the registry facts plus exactly one stolen status.
type MergedRecord struct {
	Facts  Facts
	Stolen StolenStatus
}

// Merge builds a record from facts (nil when the registry produced none) and a stolen status.
func Merge(facts Facts, stolen StolenStatus) *MergedRecord {
	return &MergedRecord{Facts: facts.Clone(), Stolen: stolen}
}

// Equal reports structural equality. Nil and empty fact sets compare equal.
func (r *MergedRecord) Equal(other *MergedRecord) bool {
	if r == nil || other == nil {
		return r == nil && other == nil
	}
	return r.Stolen == other.Stolen && cmp.Equal(r.Facts, other.Facts, cmpopts.EquateEmpty())
}

// Diff returns a human-readable difference between two records, empty when equal.
func Diff(before, after *MergedRecord) string {
	var b, a Facts
	var bs, as StolenStatus
	if before != nil {
		b, bs = before.Facts, before.Stolen
	}
	if after != nil {
		a, as = after.Facts, after.Stolen
	}
	d := cmp.Diff(b, a, cmpopts.EquateEmpty())
	if bs != as {
		d += fmt.Sprintf("%s: %s -> %s\n", StolenKey, bs, as)
	}
	return d
}

// Get returns the value for key, including the stolen status under StolenKey.
func (r *MergedRecord) Get(key string) (FactValue, bool) {
	if r == nil {
		return FactValue{}, false
	}
	if key == StolenKey {
		return r.Stolen.Value(), true
	}
	v, ok := r.Facts[key]
	return v, ok
}

// Flatten returns the record as a single map including StolenKey.
func (r *MergedRecord) Flatten() map[string]any {
	out := make(map[string]any, len(r.Facts)+1)
	for k, v := range r.Facts {
		out[k] = v.Interface()
	}
	if r.Stolen.Known() {
		out[StolenKey] = r.Stolen == StolenTrue
	} else {
		out[StolenKey] = nil
	}
	return out
}

// MarshalJSON encodes the record as one flat object.
func (r MergedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Flatten())
}

// UnmarshalJSON decodes the flat form produced by MarshalJSON.
func (r *MergedRecord) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return fmt.Errorf("record: expected JSON object, got %s", res.Type)
	}
	facts := make(Facts)
	stolen := StolenUnknown
	var err error
	res.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if k == StolenKey {
			err = stolen.UnmarshalJSON([]byte(value.Raw))
			return err == nil
		}
		facts[k] = ValueFromJSON(k, value)
		return true
	})
	if err != nil {
		return err
	}
	r.Facts = facts
	r.Stolen = stolen
	return nil
}
