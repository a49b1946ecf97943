package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"compass/internal/keywords"
	"compass/internal/model"
	"compass/internal/utils"
)

// modelAnswer is the decoded completion of one model turn
type modelAnswer struct {
	Patch   *model.FilterPatch
	Message string
	// Ignored lists patch keys that were dropped because of an unusable value
	Ignored []string
}

var amountFields = map[string]bool{
	model.FieldMinPrice: true,
	model.FieldMaxPrice: true,
	model.FieldSqftMin:  true,
	model.FieldSqftMax:  true,
}

var countFields = map[string]bool{
	model.FieldBedsMin:  true,
	model.FieldBathsMin: true,
}

// parseModelAnswer extracts the JSON object from the raw completion and reads
// it as a tri-state patch.
func parseModelAnswer(content string) (*modelAnswer, error) {
	obj, err := utils.DecodeJSONObject(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (content: %s)", ErrMalformedResponse, err, utils.TruncateString(content, 200))
	}

	rawFilters, ok := obj["filters"]
	if !ok {
		return nil, fmt.Errorf("%w: missing filters object", ErrInvalidResponseShape)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rawFilters, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: filters is not an object", ErrInvalidResponseShape)
	}

	answer := &modelAnswer{Patch: model.NewFilterPatch()}

	for _, name := range model.ScalarFields {
		raw, present := fields[name]
		if !present {
			continue
		}
		fp, ok := parseScalar(name, raw)
		if !ok {
			answer.Ignored = append(answer.Ignored, name)
			continue
		}
		if fp.Op != model.PatchUnset {
			answer.Patch.Fields[name] = fp
		}
	}

	if raw, present := fields[model.FieldKeywords]; present {
		list, ok := parseKeywordList(raw)
		switch {
		case !ok:
			answer.Ignored = append(answer.Ignored, model.FieldKeywords)
		case list != nil:
			answer.Patch.KeywordsSet = true
			answer.Patch.Keywords = list
		}
	}

	answer.Message = readString(obj["message"])
	if answer.Message == "" {
		answer.Message = readString(obj["explanation"])
	}

	return answer, nil
}

// parseScalar maps a raw JSON value to a field patch. null is the unset sentinel,
// an empty string clears, anything else overwrites.
func parseScalar(field string, raw json.RawMessage) (model.FieldPatch, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return model.FieldPatch{Op: model.PatchUnset}, true
	}

	var value string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &value); err != nil {
			return model.FieldPatch{}, false
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return model.FieldPatch{}, false
		}
		value = n.String()
	default:
		return model.FieldPatch{}, false
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return model.FieldPatch{Op: model.PatchClear}, true
	}

	switch {
	case amountFields[field]:
		value = normalizeAmount(value)
	case countFields[field]:
		value = strings.TrimSuffix(value, "+")
	}
	return model.FieldPatch{Op: model.PatchValue, Value: value}, true
}

// parseKeywordList accepts an array of strings or a comma-joined string.
// A nil list with ok=true means the model sent null.
func parseKeywordList(raw json.RawMessage) ([]string, bool) {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return nil, true
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			var s string
			if json.Unmarshal(item, &s) == nil {
				out = append(out, s)
			}
		}
		return out, true
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return keywords.Split(joined), true
	}
	return nil, false
}

// normalizeAmount turns "$1,250,000", "1.5M" or "750k" into plain digits.
// Values that still do not read as a number are returned trimmed but unchanged.
func normalizeAmount(value string) string {
	cleaned := strings.NewReplacer("$", "", ",", "", "_", "", " ", "").Replace(value)

	if isDigits(cleaned) {
		return cleaned
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(cleaned, "k"), strings.HasSuffix(cleaned, "K"):
		multiplier = 1e3
		cleaned = cleaned[:len(cleaned)-1]
	case strings.HasSuffix(cleaned, "m"), strings.HasSuffix(cleaned, "M"):
		multiplier = 1e6
		cleaned = cleaned[:len(cleaned)-1]
	}

	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || n < 0 {
		return value
	}
	return strconv.FormatFloat(n*multiplier, 'f', -1, 64)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func readString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
