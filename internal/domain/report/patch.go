package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

var (
	ErrReservedField = fmt.Errorf("field is assigned by the service and cannot be changed")
	ErrUnknownField  = fmt.Errorf("unknown report field")
	ErrInvalidValue  = fmt.Errorf("invalid field value")
)

// Keys of the flat update document that are not descriptive fields.
const (
	keyStatus    = "status"
	keyDetails   = "details"
	keyPhotoURLs = "photoUrls"
	keyDocuments = "documents"
)

// reservedKeys can never appear in an update.
var reservedKeys = map[string]struct{}{
	"id":                  {},
	"envSequentialNumber": {},
	"createdAt":           {},
	"updatedAt":           {},
}

// detailKeys maps each descriptive field's JSON name to its Details field index.
var detailKeys = jsonFieldNames(reflect.TypeOf(Details{}))

func jsonFieldNames(t reflect.Type) map[string]int {
	names := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		names[name] = i
	}
	return names
}

// DetailFieldNames returns the JSON names of all descriptive fields, sorted.
func DetailFieldNames() []string {
	out := make([]string, 0, len(detailKeys))
	for k := range detailKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Patch is a partial update. Nil members and absent Fields keys are left
// unchanged. A Fields value of JSON null clears that field.
//
// AppendPhotoURLs and AppendDocuments add to the stored lists instead of
// replacing them. Repositories apply them under the same lock or transaction
// as the rest of the patch, so concurrent appends never lose an entry.
type Patch struct {
	Status    *Status
	Fields    map[string]json.RawMessage
	PhotoURLs *[]string
	Documents *[]Document

	AppendPhotoURLs []string
	AppendDocuments []Document
}

// DecodePatch parses a JSON update document shaped like a report:
// {"status":"Traité","details":{"location":"Garage municipal"},"photoUrls":[...]}.
func DecodePatch(raw []byte) (Patch, error) {
	var doc map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return Patch{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	var p Patch
	for key, val := range doc {
		switch key {
		case keyStatus:
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return Patch{}, fmt.Errorf("%w: status: %v", ErrInvalidValue, err)
			}
			st, err := ParseStatus(s)
			if err != nil {
				return Patch{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
			}
			p.Status = &st
		case keyPhotoURLs:
			var urls []string
			if err := json.Unmarshal(val, &urls); err != nil {
				return Patch{}, fmt.Errorf("%w: photoUrls: %v", ErrInvalidValue, err)
			}
			p.PhotoURLs = &urls
		case keyDocuments:
			var docs []Document
			if err := json.Unmarshal(val, &docs); err != nil {
				return Patch{}, fmt.Errorf("%w: documents: %v", ErrInvalidValue, err)
			}
			p.Documents = &docs
		case keyDetails:
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(val, &fields); err != nil {
				return Patch{}, fmt.Errorf("%w: details must be an object: %v", ErrInvalidValue, err)
			}
			if len(fields) > 0 {
				p.Fields = fields
			}
		default:
			if _, ok := reservedKeys[key]; ok {
				return Patch{}, fmt.Errorf("%w: %s", ErrReservedField, key)
			}
			if _, ok := detailKeys[key]; ok {
				return Patch{}, fmt.Errorf("%w: %s belongs under details", ErrUnknownField, key)
			}
			return Patch{}, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
	}
	return p, p.Validate()
}

// Validate rejects reserved keys, unknown keys, invalid statuses and values
// that do not fit the descriptive field types.
func (p Patch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown report status %q", ErrInvalidValue, *p.Status)
	}
	for key := range p.Fields {
		if _, ok := reservedKeys[key]; ok {
			return fmt.Errorf("%w: %s", ErrReservedField, key)
		}
		switch key {
		case keyStatus, keyDetails, keyPhotoURLs, keyDocuments:
			return fmt.Errorf("%w: %s is not a descriptive field", ErrInvalidValue, key)
		}
		if _, ok := detailKeys[key]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
	}
	if len(p.Fields) > 0 {
		var d Details
		if err := p.mergeDetails(&d); err != nil {
			return err
		}
	}
	if p.PhotoURLs != nil && len(p.AppendPhotoURLs) > 0 {
		return fmt.Errorf("%w: photoUrls cannot be replaced and appended at once", ErrInvalidValue)
	}
	if p.Documents != nil && len(p.AppendDocuments) > 0 {
		return fmt.Errorf("%w: documents cannot be replaced and appended at once", ErrInvalidValue)
	}
	return nil
}

// IsEmpty reports whether applying p would change nothing but updatedAt.
func (p Patch) IsEmpty() bool {
	return p.Status == nil && len(p.Fields) == 0 && p.PhotoURLs == nil && p.Documents == nil &&
		len(p.AppendPhotoURLs) == 0 && len(p.AppendDocuments) == 0
}

// ApplyTo merges p into r. Timestamps, id and sequential number are untouched.
func (p Patch) ApplyTo(r *Report) error {
	if err := p.mergeDetails(&r.Details); err != nil {
		return err
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.PhotoURLs != nil {
		r.PhotoURLs = append([]string(nil), (*p.PhotoURLs)...)
	}
	if p.Documents != nil {
		r.Documents = append([]Document(nil), (*p.Documents)...)
	}
	if len(p.AppendPhotoURLs) > 0 {
		r.PhotoURLs = append(append([]string(nil), r.PhotoURLs...), p.AppendPhotoURLs...)
	}
	if len(p.AppendDocuments) > 0 {
		r.Documents = append(append([]Document(nil), r.Documents...), p.AppendDocuments...)
	}
	return nil
}

// DetailValues decodes each descriptive field value into its Details type and
// returns the typed values keyed by JSON name. Unknown nested keys are dropped
// on the way. A nil value means the field is cleared, which is also what a
// zero value amounts to since zero fields are omitted when stored.
func (p Patch) DetailValues() (map[string]any, error) {
	out := make(map[string]any, len(p.Fields))
	for key, raw := range p.Fields {
		idx, ok := detailKeys[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
		if isJSONNull(raw) {
			out[key] = nil
			continue
		}
		var d Details
		single := Patch{Fields: map[string]json.RawMessage{key: raw}}
		if err := single.mergeDetails(&d); err != nil {
			return nil, err
		}
		v := reflect.ValueOf(d).Field(idx)
		if v.IsZero() {
			out[key] = nil
			continue
		}
		out[key] = v.Interface()
	}
	return out, nil
}

func (p Patch) mergeDetails(d *Details) error {
	if len(p.Fields) == 0 {
		return nil
	}
	current, err := json.Marshal(d)
	if err != nil {
		return err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(current, &merged); err != nil {
		return err
	}
	for key, val := range p.Fields {
		if isJSONNull(val) {
			delete(merged, key)
			continue
		}
		merged[key] = val
	}
	buf, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	var next Details
	if err := json.Unmarshal(buf, &next); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	*d = next
	return nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
