package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Models wrap JSON in markdown fences or pad it with prose more often than
// not. ExtractJSON reduces such output to the first valid JSON value.
var (
	codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
	objectRegex    = regexp.MustCompile(`(?s)\{.*\}`)
	arrayRegex     = regexp.MustCompile(`(?s)\[.*\]`)
)

// ExtractJSON returns a valid JSON object or array extracted from text.
//
// Strategy sequence:
//  1. direct parse of the trimmed text
//  2. contents of a markdown code fence
//  3. widest {...} or [...] span in the text
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", errors.New("empty response")
	}

	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		inner := strings.TrimSpace(m[1])
		if json.Valid([]byte(inner)) {
			return inner, nil
		}
	}

	for _, re := range []*regexp.Regexp{arrayRegex, objectRegex} {
		if m := re.FindString(trimmed); m != "" && json.Valid([]byte(m)) {
			return m, nil
		}
	}

	return "", errors.New("no valid JSON found in response")
}
