package model

// DefaultLocation is used whenever a filter state would otherwise have no location
const DefaultLocation = "Aptos, CA"

// DefaultSort is the ordering applied when none is requested
const DefaultSort = "Price_High_Low"

// Field names as they appear on the wire and in model patches
const (
	FieldLocation = "location"
	FieldMinPrice = "minPrice"
	FieldMaxPrice = "maxPrice"
	FieldHomeType = "home_type"
	FieldBedsMin  = "bedsMin"
	FieldBathsMin = "bathsMin"
	FieldSqftMin  = "sqftMin"
	FieldSqftMax  = "sqftMax"
	FieldSort     = "sort"
	FieldKeywords = "keywords"
)

// ScalarFields lists every single-valued filter field in display order
var ScalarFields = []string{
	FieldLocation,
	FieldMinPrice,
	FieldMaxPrice,
	FieldHomeType,
	FieldBedsMin,
	FieldBathsMin,
	FieldSqftMin,
	FieldSqftMax,
	FieldSort,
}

// HomeTypes are the legal property categories for home_type
var HomeTypes = []string{
	"Houses",
	"Townhomes",
	"Multi-family",
	"Apartments",
	"Manufactured",
	"Condos",
	"LotsLand",
}

// SortOrders are the legal values for sort
var SortOrders = []string{
	"Price_High_Low",
	"Price_Low_High",
	"Newest",
	"Oldest",
	"Sqft_High_Low",
	"Sqft_Low_High",
	"Square_Feet",
	"Bedrooms",
	"Bathrooms",
	"Lot_Size",
}

// FilterState is the full set of search criteria tracked across a conversation.
// An empty string means the field is not constrained.
type FilterState struct {
	Location string   `json:"location"`
	MinPrice string   `json:"minPrice"`
	MaxPrice string   `json:"maxPrice"`
	HomeType string   `json:"home_type"`
	BedsMin  string   `json:"bedsMin"`
	BathsMin string   `json:"bathsMin"`
	SqftMin  string   `json:"sqftMin"`
	SqftMax  string   `json:"sqftMax"`
	Sort     string   `json:"sort"`
	Keywords []string `json:"keywords"`
}

// NewFilterState returns the state a conversation starts with
func NewFilterState(location string) FilterState {
	if location == "" {
		location = DefaultLocation
	}
	return FilterState{
		Location: location,
		Sort:     DefaultSort,
		Keywords: []string{},
	}
}

// Clone returns a deep copy so callers can mutate it freely
func (f FilterState) Clone() FilterState {
	out := f
	out.Keywords = make([]string, len(f.Keywords))
	copy(out.Keywords, f.Keywords)
	return out
}

// IsZero reports whether no field carries a value
func (f FilterState) IsZero() bool {
	for _, name := range ScalarFields {
		if f.Get(name) != "" {
			return false
		}
	}
	return len(f.Keywords) == 0
}

// Get returns the value of a scalar field by wire name
func (f FilterState) Get(field string) string {
	switch field {
	case FieldLocation:
		return f.Location
	case FieldMinPrice:
		return f.MinPrice
	case FieldMaxPrice:
		return f.MaxPrice
	case FieldHomeType:
		return f.HomeType
	case FieldBedsMin:
		return f.BedsMin
	case FieldBathsMin:
		return f.BathsMin
	case FieldSqftMin:
		return f.SqftMin
	case FieldSqftMax:
		return f.SqftMax
	case FieldSort:
		return f.Sort
	}
	return ""
}

// Set assigns a scalar field by wire name. It reports false for unknown fields.
func (f *FilterState) Set(field, value string) bool {
	switch field {
	case FieldLocation:
		f.Location = value
	case FieldMinPrice:
		f.MinPrice = value
	case FieldMaxPrice:
		f.MaxPrice = value
	case FieldHomeType:
		f.HomeType = value
	case FieldBedsMin:
		f.BedsMin = value
	case FieldBathsMin:
		f.BathsMin = value
	case FieldSqftMin:
		f.SqftMin = value
	case FieldSqftMax:
		f.SqftMax = value
	case FieldSort:
		f.Sort = value
	default:
		return false
	}
	return true
}

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one prior message of a conversation
type ConversationTurn struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}
