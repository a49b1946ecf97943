package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"compass/internal/keywords"
	"compass/internal/model"

	"github.com/xeipuuv/gojsonschema"
)

// Error lists every schema violation of a filter document
type Error struct {
	Details []string
}

func (e *Error) Error() string {
	return "invalid filter parameters: " + strings.Join(e.Details, "; ")
}

// FilterValidator normalizes filter documents, applies schema defaults and
// validates field types and enums. Keywords are reduced to whitelisted tokens.
type FilterValidator struct {
	schema          *gojsonschema.Schema
	whitelist       *keywords.Whitelist
	defaultLocation string
}

// NewFilterValidator compiles the filter schema. A nil whitelist uses keywords.Default.
func NewFilterValidator(defaultLocation string, whitelist *keywords.Whitelist) (*FilterValidator, error) {
	if defaultLocation == "" {
		defaultLocation = model.DefaultLocation
	}
	if whitelist == nil {
		whitelist = keywords.Default()
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(filterSchema()))
	if err != nil {
		return nil, fmt.Errorf("compile filter schema: %w", err)
	}
	return &FilterValidator{schema: schema, whitelist: whitelist, defaultLocation: defaultLocation}, nil
}

// NormalizeJSON decodes and normalizes a raw filter document. Empty input or
// null yields the initial filter state.
func (v *FilterValidator) NormalizeJSON(raw json.RawMessage) (model.FilterState, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return model.NewFilterState(v.defaultLocation), nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.FilterState{}, &Error{Details: []string{"filters must be a JSON object"}}
	}
	return v.Normalize(doc)
}

// Normalize drops unknown keys, coerces numbers to strings and comma-joined
// keywords to a list, fills defaults for location and sort, then validates.
// Keywords come back canonicalized and deduplicated; unknown ones are dropped.
func (v *FilterValidator) Normalize(raw map[string]interface{}) (model.FilterState, error) {
	doc := make(map[string]interface{}, len(model.ScalarFields)+1)

	for _, field := range model.ScalarFields {
		value, ok := raw[field]
		if !ok || value == nil {
			continue
		}
		doc[field] = coerceScalar(value)
	}

	switch kw := raw[model.FieldKeywords].(type) {
	case nil:
		doc[model.FieldKeywords] = []interface{}{}
	case string:
		parts := keywords.Split(kw)
		list := make([]interface{}, len(parts))
		for i, part := range parts {
			list[i] = part
		}
		doc[model.FieldKeywords] = list
	default:
		doc[model.FieldKeywords] = kw
	}

	if s, _ := doc[model.FieldLocation].(string); s == "" {
		doc[model.FieldLocation] = v.defaultLocation
	}
	if s, _ := doc[model.FieldSort].(string); s == "" {
		doc[model.FieldSort] = model.DefaultSort
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return model.FilterState{}, fmt.Errorf("validate filters: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return model.FilterState{}, &Error{Details: details}
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return model.FilterState{}, fmt.Errorf("encode filters: %w", err)
	}
	var state model.FilterState
	if err := json.Unmarshal(encoded, &state); err != nil {
		return model.FilterState{}, fmt.Errorf("decode filters: %w", err)
	}
	state.Keywords, _ = v.whitelist.Filter(state.Keywords)
	return state, nil
}

// Check validates a typed state, returning it with defaults applied
func (v *FilterValidator) Check(state model.FilterState) (model.FilterState, error) {
	encoded, err := json.Marshal(state)
	if err != nil {
		return model.FilterState{}, fmt.Errorf("encode filters: %w", err)
	}
	return v.NormalizeJSON(encoded)
}

func coerceScalar(value interface{}) interface{} {
	switch t := value.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	default:
		return value
	}
}

func filterSchema() map[string]interface{} {
	str := map[string]interface{}{"type": "string"}

	homeTypes := []interface{}{""}
	for _, t := range model.HomeTypes {
		homeTypes = append(homeTypes, t)
	}
	sorts := make([]interface{}, 0, len(model.SortOrders))
	for _, s := range model.SortOrders {
		sorts = append(sorts, s)
	}

	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{model.FieldLocation, model.FieldSort},
		"properties": map[string]interface{}{
			model.FieldLocation: map[string]interface{}{"type": "string", "minLength": 1},
			model.FieldMinPrice: str,
			model.FieldMaxPrice: str,
			model.FieldHomeType: map[string]interface{}{"type": "string", "enum": homeTypes},
			model.FieldBedsMin:  str,
			model.FieldBathsMin: str,
			model.FieldSqftMin:  str,
			model.FieldSqftMax:  str,
			model.FieldSort:     map[string]interface{}{"type": "string", "enum": sorts},
			model.FieldKeywords: map[string]interface{}{
				"type":  "array",
				"items": str,
			},
		},
		"additionalProperties": false,
	}
}
