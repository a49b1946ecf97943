package model

// PatchOp says what a patch does to one field
type PatchOp int

const (
	// PatchUnset leaves the field as it was
	PatchUnset PatchOp = iota
	// PatchClear empties the field
	PatchClear
	// PatchValue overwrites the field
	PatchValue
)

func (op PatchOp) String() string {
	switch op {
	case PatchClear:
		return "clear"
	case PatchValue:
		return "value"
	default:
		return "unset"
	}
}

// FieldPatch is the tri-state instruction for a single scalar field
type FieldPatch struct {
	Op    PatchOp
	Value string
}

// FilterPatch is the partial filter state returned by the language model for one turn.
// Fields missing from the map are PatchUnset.
type FilterPatch struct {
	Fields map[string]FieldPatch

	// KeywordsSet is false when the model did not mention keywords at all.
	KeywordsSet bool
	Keywords    []string
}

// NewFilterPatch returns an empty patch
func NewFilterPatch() *FilterPatch {
	return &FilterPatch{Fields: make(map[string]FieldPatch)}
}

// Op returns the operation recorded for a scalar field
func (p *FilterPatch) Op(field string) FieldPatch {
	if p == nil {
		return FieldPatch{}
	}
	return p.Fields[field]
}

// Apply merges the patch onto base and returns the result. base is not modified.
// Keywords are copied verbatim; whitelist enforcement happens before Apply.
func (p *FilterPatch) Apply(base FilterState) FilterState {
	out := base.Clone()
	if p == nil {
		return out
	}
	for field, fp := range p.Fields {
		switch fp.Op {
		case PatchClear:
			out.Set(field, "")
		case PatchValue:
			out.Set(field, fp.Value)
		}
	}
	if p.KeywordsSet {
		out.Keywords = make([]string, len(p.Keywords))
		copy(out.Keywords, p.Keywords)
	}
	return out
}
