package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// isoDatePattern matches the date prefix of an ISO-8601-like value.
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// timePattern matches an HH:MM-shaped token, accepting "." or ":" as the
// separator.
var timePattern = regexp.MustCompile(`(\d{1,2})[.:](\d{2})`)

// localizedDatePattern matches "7 sep" / "17 september" style day + month
// fragments from the rendered UI.
var localizedDatePattern = regexp.MustCompile(`(?i)(\d{1,2})\s+([a-zåäö]+)`)

// swedishMonths maps month-name prefixes to month numbers. Three letters
// are enough to distinguish every month; "maj" and "mars" collide on two.
var swedishMonths = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "maj": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "okt": 10, "nov": 11, "dec": 12,
}

// isoDate returns the YYYY-MM-DD prefix of an ISO-like date or datetime
// value, or "" when the value has no such prefix.
func isoDate(value string) string {
	value = strings.TrimSpace(value)
	if len(value) < 10 || !isoDatePattern.MatchString(value) {
		return ""
	}
	return value[:10]
}

// localizedDate parses a "day month-abbreviation" fragment into YYYY-MM-DD.
// Listings near the year boundary omit the year; a month numerically
// earlier than the reference month is assumed to fall in the next year.
func (n *Normalizer) localizedDate(text string) string {
	matches := localizedDatePattern.FindStringSubmatch(text)
	if matches == nil {
		return ""
	}

	day, err := strconv.Atoi(matches[1])
	if err != nil || day < 1 || day > 31 {
		return ""
	}

	name := strings.ToLower(matches[2])
	if len(name) < 3 {
		return ""
	}
	month, ok := swedishMonths[name[:3]]
	if !ok {
		return ""
	}

	year := n.now.Year()
	if month < int(n.now.Month()) {
		year++
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// extractTime pulls the first HH:MM-shaped substring out of text,
// normalized to a ":" separator. Returns "" when no time is present.
func extractTime(text string) string {
	matches := timePattern.FindStringSubmatch(text)
	if matches == nil {
		return ""
	}
	hour, err := strconv.Atoi(matches[1])
	if err != nil || hour > 23 {
		return ""
	}
	minute, err := strconv.Atoi(matches[2])
	if err != nil || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// locationAfterTime takes the text immediately after the matched time
// token as a best-effort location: leading non-letters stripped, bounded
// to the configured word count so unrelated trailing content is not
// absorbed.
func (n *Normalizer) locationAfterTime(text string) string {
	loc := timePattern.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	rest := text[loc[1]:]
	rest = strings.TrimLeftFunc(rest, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if rest == "" {
		return ""
	}

	words := strings.Fields(rest)
	max := n.cfg.LocationMaxWords
	if max > 0 && len(words) > max {
		words = words[:max]
	}
	return strings.Join(words, " ")
}
