package service

import (
	"fmt"
	"strings"

	"compass/internal/model"
)

var clearPhrases = []string{"clear all filters", "reset filters", "clear filters"}

const exceptLocationPhrase = "except location"

// localCommand resolves filter-reset utterances without the language model.
// ok is false when the utterance is not a local command.
func localCommand(utterance string, current model.FilterState, defaultLocation string) (Resolution, bool) {
	text := strings.ToLower(strings.TrimSpace(utterance))

	matched := false
	for _, phrase := range clearPhrases {
		if strings.Contains(text, phrase) {
			matched = true
			break
		}
	}
	if !matched {
		return Resolution{}, false
	}

	if strings.Contains(text, exceptLocationPhrase) {
		location := current.Location
		if location == "" {
			location = defaultLocation
		}
		return Resolution{
			Filters:  model.NewFilterState(location),
			Message:  fmt.Sprintf("I've cleared all filters except for the location (%s). What else would you like to search for?", location),
			FastPath: true,
		}, true
	}

	return Resolution{
		Filters:  model.NewFilterState(defaultLocation),
		Message:  "I've cleared all filters. What would you like to search for?",
		FastPath: true,
	}, true
}
