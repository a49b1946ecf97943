// Package keywords maps free-text feature phrases onto a fixed vocabulary of
// canonical listing tags.
package keywords

import (
	"sort"
	"strings"
)

// defaultPhrases is the phrase -> canonical token table. Many phrases share a token.
var defaultPhrases = map[string]string{
	// Core features
	"pool":          "pool",
	"swimming pool": "pool",

	"garage":         "garage",
	"two car garage": "garage",
	"2-car garage":   "garage",

	"fireplace":  "fireplace",
	"wood stove": "fireplace",

	"basement":          "basement",
	"finished basement": "basement",

	"adu":         "adu",
	"guest house": "guestHouse",
	"casita":      "guestHouse",
	"in-law":      "guestHouse",

	"solar":        "solar",
	"solar panels": "solar",

	"new construction": "newConstruction",
	"brand new":        "newConstruction",
	"just built":       "newConstruction",

	"single story": "singleStory",
	"one story":    "singleStory",
	"ranch style":  "singleStory",

	"fixer":       "fixer",
	"fixer-upper": "fixer",
	"needs tlc":   "fixer",

	"open floor plan": "openFloorPlan",
	"great room":      "openFloorPlan",

	"garden":          "garden",
	"landscaped yard": "garden",

	// Views. "view" is the broad catch-all.
	"view":             "view",
	"ocean view":       "ocean view",
	"mountain view":    "mountain view",
	"bay view":         "bay view",
	"lake view":        "lake view",
	"river view":       "river view",
	"city view":        "city view",
	"golf course view": "golf course view",
	"park view":        "park view",
	"water view":       "water view",
	"canyon view":      "canyon view",
	"valley view":      "valley view",
	"harbor view":      "harbor view",
	"garden view":      "garden view",

	// Waterfronts. "waterfront" is the broad catch-all.
	"waterfront":   "waterfront",
	"oceanfront":   "oceanfront",
	"beachfront":   "beachfront",
	"lakefront":    "lakefront",
	"riverfront":   "riverfront",
	"bayfront":     "bayfront",
	"canal front":  "canal front",
	"harbor front": "harbor front",
	"lagoon front": "lagoon front",
}

var defaultWhitelist = New(defaultPhrases)

// Whitelist is an immutable phrase table. It is safe for concurrent use.
type Whitelist struct {
	phrases map[string]string
	tokens  []string
	isToken map[string]struct{}
}

// New builds a whitelist from a phrase -> token table. Keys are normalized
// the same way lookups are; the table is copied.
func New(table map[string]string) *Whitelist {
	w := &Whitelist{
		phrases: make(map[string]string, len(table)),
		isToken: make(map[string]struct{}),
	}
	for phrase, token := range table {
		w.phrases[normalize(phrase)] = token
		if _, seen := w.isToken[token]; !seen {
			w.isToken[token] = struct{}{}
			w.tokens = append(w.tokens, token)
		}
	}
	sort.Strings(w.tokens)
	return w
}

// Default returns the process-wide whitelist built from the static table
func Default() *Whitelist {
	return defaultWhitelist
}

// Canonicalize returns the token for an exact (case and whitespace
// insensitive) phrase match.
func (w *Whitelist) Canonicalize(phrase string) (string, bool) {
	token, ok := w.phrases[normalize(phrase)]
	return token, ok
}

// IsWhitelisted reports whether Canonicalize knows the phrase
func (w *Whitelist) IsWhitelisted(phrase string) bool {
	_, ok := w.Canonicalize(phrase)
	return ok
}

// IsToken reports whether s is itself a canonical token
func (w *Whitelist) IsToken(s string) bool {
	_, ok := w.isToken[s]
	return ok
}

// AllTokens returns the deduplicated, sorted token vocabulary. The slice is a copy.
func (w *Whitelist) AllTokens() []string {
	out := make([]string, len(w.tokens))
	copy(out, w.tokens)
	return out
}

// Filter keeps the entries that are canonical tokens or whitelisted phrases,
// mapped to their token, without duplicates and in first-seen order.
// The second result is the number of entries dropped as unknown.
func (w *Whitelist) Filter(entries []string) ([]string, int) {
	out := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	dropped := 0
	for _, entry := range entries {
		token := strings.TrimSpace(entry)
		if !w.IsToken(token) {
			var ok bool
			if token, ok = w.Canonicalize(entry); !ok {
				dropped++
				continue
			}
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out, dropped
}

// Split breaks a comma-joined keyword string into trimmed, non-blank entries
func Split(joined string) []string {
	out := []string{}
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalize(phrase string) string {
	return strings.ToLower(strings.TrimSpace(phrase))
}
