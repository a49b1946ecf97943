package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"compass/internal/model"
)

// buildSystemPrompt renders the instruction block sent ahead of the conversation
func buildSystemPrompt(current model.FilterState, vocabulary []string, defaultLocation string) string {
	var b strings.Builder

	b.WriteString(`You are a real estate search assistant. You turn natural language requests into structured filter criteria for property searches, across a multi-turn conversation.

Available filter fields (all values are strings):
`)
	fmt.Fprintf(&b, "- location: City, neighborhood, or address (required, default: %q)\n", defaultLocation)
	b.WriteString(`- minPrice: Minimum price, digits only
- maxPrice: Maximum price, digits only
- home_type: Property type
- bedsMin: Minimum bedrooms
- bathsMin: Minimum bathrooms, may end in ".5"
- sqftMin: Minimum square footage
- sqftMax: Maximum square footage
- sort: Sort order
- keywords: Array of feature tags
`)
	fmt.Fprintf(&b, "\nLegal home_type values: %s\n", quoteList(model.HomeTypes))
	fmt.Fprintf(&b, "Legal sort values: %s (default %q)\n", quoteList(model.SortOrders), model.DefaultSort)
	fmt.Fprintf(&b, "Legal keywords (use these exact tags, nothing else): %s\n", quoteList(vocabulary))

	b.WriteString(`
Rules:
1. Return only the fields the user explicitly states or clearly implies in this message. Never invent values for fields that were not mentioned.
2. Prices become plain digit strings with no currency symbols or separators ("under $1M" -> maxPrice "1000000", "over 750k" -> minPrice "750000").
3. Bedroom and bathroom counts are minimums: use bedsMin and bathsMin.
4. Never clear location implicitly. Only include location when the user names a new place.
5. To remove a constraint the user no longer wants, send that field as an empty string ("remove the price cap" -> maxPrice "").
6. Only include keywords when the user changes the wanted features, and then send the complete new list using legal tags only. Do not repeat keywords on turns that do not touch them.
7. Respond with a single JSON object and nothing else.
`)

	if !current.IsZero() {
		snapshot, err := json.MarshalIndent(current, "", "  ")
		if err == nil {
			fmt.Fprintf(&b, "\nCurrent active filters:\n%s\n", snapshot)
		}
	}

	b.WriteString(`
Response format:
{
  "filters": {
    "location": "San Diego, CA",
    "minPrice": "500000",
    "maxPrice": "1000000",
    "bedsMin": "3",
    "keywords": ["pool", "ocean view"]
  },
  "message": "Searching for 3+ bedroom homes in San Diego priced $500K-$1M with a pool and an ocean view"
}`)

	return b.String()
}

// buildMessages assembles system prompt, prior turns and the new utterance in order
func buildMessages(systemPrompt string, history []model.ConversationTurn, utterance string) []ChatMessage {
	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: utterance})
	return messages
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
