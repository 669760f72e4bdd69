// Package extract pulls typed records out of the free-text register cells
// written by the restaurant simulator.
//
// Every function degrades to "no matches" (or 0) on empty, missing or
// malformed input. None of them return errors.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/logflow/tablelog/internal/model"
)

var (
	queueEntryRe   = regexp.MustCompile(`Group (\d+)\(size (\d+)\)`)
	orderTokenRe   = regexp.MustCompile(`([A-Za-z]+)\(Group (\d+)\)`)
	groupIDRe      = regexp.MustCompile(`Group (\d+)`)
	leadingIntRe   = regexp.MustCompile(`^(\d+)`)
	ingredientPair = regexp.MustCompile(`([^:;]+):\s*(-?\d+)`)
)

// IsMissing reports whether a cell holds no data. Spreadsheet exports write
// "nan" or "NaN" for missing values.
func IsMissing(text string) bool {
	s := strings.TrimSpace(text)
	return s == "" || strings.EqualFold(s, "nan")
}

// QueueEntries extracts `Group <id>(size <n>)` tokens.
func QueueEntries(text string) []model.QueueEntry {
	if IsMissing(text) {
		return nil
	}
	matches := queueEntryRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]model.QueueEntry, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		size, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out = append(out, model.QueueEntry{GroupID: id, PartySize: size})
	}
	return out
}

// OrderTokens extracts `<item>(Group <id>)` tokens.
func OrderTokens(text string) []model.OrderToken {
	if IsMissing(text) {
		return nil
	}
	matches := orderTokenRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]model.OrderToken, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out = append(out, model.OrderToken{Item: m[1], GroupID: id})
	}
	return out
}

// GroupIDs extracts every bare `Group <id>` mention, in order of appearance.
// Duplicates are kept; a completed-orders cell lists one token per dish.
func GroupIDs(text string) []int {
	if IsMissing(text) {
		return nil
	}
	matches := groupIDRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// LeadingInteger returns the integer prefix of the trimmed cell, or 0.
func LeadingInteger(text string) int {
	if IsMissing(text) {
		return 0
	}
	m := leadingIntRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// Ingredients parses `name:count;` pairs. Pairs without a numeric count are skipped.
func Ingredients(text string) map[string]int {
	if IsMissing(text) {
		return nil
	}
	matches := ingredientPair.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make(map[string]int, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out[name] = n
	}
	return out
}
