package timeparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Coarse date token patterns, evaluated in order. The dash form of numeric
// dates is restricted to ISO (YYYY-MM-DD) so compact time ranges such as
// "2-3 PM" are never mistaken for dates.
var (
	todayPattern    = regexp.MustCompile(`(?i)\btoday\b`)
	tomorrowPattern = regexp.MustCompile(`(?i)\btomorrow\b`)
	thisWeekPattern = regexp.MustCompile(`(?i)\bthis\s+week\b`)
	nextWeekPattern = regexp.MustCompile(`(?i)\bnext\s+week\b`)
	weekdayPattern  = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
)

// Clock-time patterns in attachment priority order.
var (
	explicitRangePattern = regexp.MustCompile(`(?i)\bfrom\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:to|until|till|-)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	compactRangePattern  = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*[-–]\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	atTimePattern        = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	bareTimePattern      = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b|(?i)\b(\d{1,2})\s*(am|pm)\b`)
)

// Lexical signals that mark a request as carrying specific times. Coarse
// relative-date words (today, next week) deliberately do not count: without
// one of these signals candidate windows are forced empty so the pipeline
// never proposes fabricated precision.
var specificTimeSignals = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm)\b`),
	regexp.MustCompile(`\b\d{1,2}:\d{2}\b`),
	weekdayPattern,
	regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)\b`),
}

// HasSpecificTimes reports whether the text carries concrete time/date
// lexical signals.
func HasSpecificTimes(text string) bool {
	for _, pattern := range specificTimeSignals {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// dateToken is a coarse date found in text, with its position and a resolver
// producing the base calendar date (midnight in the target zone).
type dateToken struct {
	pos     int
	end     int
	resolve func(ref time.Time, loc *time.Location) (time.Time, bool)
}

// clockRange is a parsed clock-time expression.
type clockRange struct {
	startHour, startMin int
	endHour, endMin     int
	pos                 int
}

// ResolveDateTimes extracts (date, optional time) pairs from text and
// converts them to absolute windows in the given zone. The zone's UTC offset
// is computed for each resolved date, so daylight-saving transitions are
// handled correctly. Expressions whose base date cannot be determined are
// dropped, never guessed.
func (r *Resolver) ResolveDateTimes(text string, ref time.Time, loc *time.Location) []Window {
	if loc == nil {
		loc = r.defaultLocation
	}

	tokens := collectDateTokens(text)

	type entry struct {
		pos    int
		window Window
	}
	entries := make([]entry, 0, len(tokens))

	for _, token := range tokens {
		base, ok := token.resolve(ref, loc)
		if !ok {
			continue
		}

		window := Window{Location: loc}
		if rng, ok := findAttachedTime(text, token); ok {
			window.Start = time.Date(base.Year(), base.Month(), base.Day(), rng.startHour, rng.startMin, 0, 0, loc)
			window.End = time.Date(base.Year(), base.Month(), base.Day(), rng.endHour, rng.endMin, 0, 0, loc)
		} else {
			// Date with no clock time: the whole day is the candidate window.
			window.Start = base
			window.End = base.AddDate(0, 0, 1)
		}
		if !window.End.After(window.Start) {
			continue
		}
		entries = append(entries, entry{pos: token.pos, window: window})
	}

	// Clock times with no date token nearby are implicitly "today".
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
	for _, rng := range standaloneTimes(text, tokens) {
		window := Window{
			Start:    time.Date(today.Year(), today.Month(), today.Day(), rng.startHour, rng.startMin, 0, 0, loc),
			End:      time.Date(today.Year(), today.Month(), today.Day(), rng.endHour, rng.endMin, 0, 0, loc),
			Location: loc,
		}
		if !window.End.After(window.Start) {
			continue
		}
		entries = append(entries, entry{pos: rng.pos, window: window})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })

	// Deduplicate identical intervals, keeping source order.
	seen := make(map[string]struct{}, len(entries))
	windows := make([]Window, 0, len(entries))
	for _, e := range entries {
		key := e.window.Start.UTC().Format(time.RFC3339) + "|" + e.window.End.UTC().Format(time.RFC3339)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		windows = append(windows, e.window)
	}
	return windows
}

// collectDateTokens runs the coarse date rules and returns all matches
// ordered by position.
func collectDateTokens(text string) []dateToken {
	var tokens []dateToken

	for _, idx := range todayPattern.FindAllStringIndex(text, -1) {
		tokens = append(tokens, dateToken{pos: idx[0], end: idx[1], resolve: resolveSameDay(0)})
	}
	for _, idx := range tomorrowPattern.FindAllStringIndex(text, -1) {
		tokens = append(tokens, dateToken{pos: idx[0], end: idx[1], resolve: resolveSameDay(1)})
	}
	for _, idx := range thisWeekPattern.FindAllStringIndex(text, -1) {
		tokens = append(tokens, dateToken{pos: idx[0], end: idx[1], resolve: resolveBusinessDay(1)})
	}
	for _, idx := range nextWeekPattern.FindAllStringIndex(text, -1) {
		tokens = append(tokens, dateToken{pos: idx[0], end: idx[1], resolve: resolveBusinessDay(7)})
	}
	for _, m := range weekdayPattern.FindAllStringSubmatchIndex(text, -1) {
		name := strings.ToLower(text[m[2]:m[3]])
		tokens = append(tokens, dateToken{pos: m[0], end: m[1], resolve: resolveWeekday(name)})
	}
	for _, m := range slashDatePattern.FindAllStringSubmatchIndex(text, -1) {
		month, _ := strconv.Atoi(text[m[2]:m[3]])
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		year := 0
		if m[6] >= 0 {
			year, _ = strconv.Atoi(text[m[6]:m[7]])
		}
		tokens = append(tokens, dateToken{pos: m[0], end: m[1], resolve: resolveNumericDate(year, month, day)})
	}
	for _, m := range isoDatePattern.FindAllStringSubmatchIndex(text, -1) {
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		day, _ := strconv.Atoi(text[m[6]:m[7]])
		tokens = append(tokens, dateToken{pos: m[0], end: m[1], resolve: resolveNumericDate(year, month, day)})
	}

	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].pos < tokens[j].pos })
	return tokens
}

// resolveSameDay resolves to the reference date plus an offset in days.
func resolveSameDay(offsetDays int) func(time.Time, *time.Location) (time.Time, bool) {
	return func(ref time.Time, loc *time.Location) (time.Time, bool) {
		d := ref.In(loc).AddDate(0, 0, offsetDays)
		return midnight(d, loc), true
	}
}

// resolveBusinessDay resolves to the next business day on/after ref+offset,
// skipping weekends.
func resolveBusinessDay(offsetDays int) func(time.Time, *time.Location) (time.Time, bool) {
	return func(ref time.Time, loc *time.Location) (time.Time, bool) {
		d := ref.In(loc).AddDate(0, 0, offsetDays)
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		return midnight(d, loc), true
	}
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// resolveWeekday resolves a weekday name to its next occurrence on/after the
// reference date.
func resolveWeekday(name string) func(time.Time, *time.Location) (time.Time, bool) {
	return func(ref time.Time, loc *time.Location) (time.Time, bool) {
		target, ok := weekdayNames[name]
		if !ok {
			return time.Time{}, false
		}
		d := ref.In(loc)
		offset := (int(target) - int(d.Weekday()) + 7) % 7
		return midnight(d.AddDate(0, 0, offset), loc), true
	}
}

// resolveNumericDate resolves M/D (optionally with year) against the
// reference year, rolling into the next year when the date already passed.
func resolveNumericDate(year, month, day int) func(time.Time, *time.Location) (time.Time, bool) {
	return func(ref time.Time, loc *time.Location) (time.Time, bool) {
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		refDay := midnight(ref.In(loc), loc)
		y := year
		switch {
		case y == 0:
			y = refDay.Year()
		case y < 100:
			y += 2000
		}
		d := time.Date(y, time.Month(month), day, 0, 0, 0, 0, loc)
		if d.Month() != time.Month(month) || d.Day() != day {
			return time.Time{}, false // e.g. 2/31 normalized away
		}
		if year == 0 && d.Before(refDay) {
			d = time.Date(y+1, time.Month(month), day, 0, 0, 0, 0, loc)
		}
		return d, true
	}
}

func midnight(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// findAttachedTime searches a bounded window around a date token for a clock
// time, trying the rules in priority order. Text after the token is searched
// first so a time never attaches across an earlier date; only when nothing
// follows does the search turn to the span before the token, which matches
// the one standaloneTimes suppresses. A range stated before the date ("from
// 2 to 3 PM on Tuesday") therefore attaches whole instead of being truncated
// to its last endpoint.
func findAttachedTime(text string, token dateToken) (clockRange, bool) {
	hi := token.end + attachmentWindow
	if hi > len(text) {
		hi = len(text)
	}
	if rng, ok := parseClockRange(text[token.end:hi], token.end); ok {
		return rng, true
	}

	lo := token.pos - attachmentWindow - 10
	if lo < 0 {
		lo = 0
	}
	return parseClockRange(text[lo:token.pos], lo)
}

// parseClockRange evaluates the clock-time rules in priority order against a
// snippet; offset translates match positions back to the full text.
func parseClockRange(snippet string, offset int) (clockRange, bool) {
	if m := explicitRangePattern.FindStringSubmatchIndex(snippet); m != nil {
		if rng, ok := buildRange(snippet, m, offset); ok {
			return rng, true
		}
	}
	if m := compactRangePattern.FindStringSubmatchIndex(snippet); m != nil {
		if rng, ok := buildRange(snippet, m, offset); ok {
			return rng, true
		}
	}
	if m := atTimePattern.FindStringSubmatchIndex(snippet); m != nil {
		if rng, ok := buildSingle(snippet, m, offset, 1, 2, 3); ok {
			return rng, true
		}
	}
	if m := bareTimePattern.FindStringSubmatchIndex(snippet); m != nil {
		if m[2] >= 0 { // HH:MM form
			if rng, ok := buildSingle(snippet, m, offset, 1, 2, 3); ok {
				return rng, true
			}
		} else { // H am/pm form
			if rng, ok := buildSingle(snippet, m, offset, 4, -1, 5); ok {
				return rng, true
			}
		}
	}
	return clockRange{}, false
}

// buildRange converts a two-endpoint match into a clockRange. A meridiem on
// only one endpoint is borrowed by the other; if the result is inverted the
// borrowed meridiem is flipped ("from 11 to 1 PM" is 11:00-13:00).
func buildRange(snippet string, m []int, offset int) (clockRange, bool) {
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return snippet[m[2*i]:m[2*i+1]]
	}

	startHour, _ := strconv.Atoi(group(1))
	startMin := 0
	if s := group(2); s != "" {
		startMin, _ = strconv.Atoi(s)
	}
	startMer := strings.ToLower(group(3))
	endHour, _ := strconv.Atoi(group(4))
	endMin := 0
	if s := group(5); s != "" {
		endMin, _ = strconv.Atoi(s)
	}
	endMer := strings.ToLower(group(6))

	if startMer == "" {
		startMer = endMer
	}
	if endMer == "" {
		endMer = startMer
	}

	sh := to24Hour(startHour, startMer)
	eh := to24Hour(endHour, endMer)
	if sh*60+startMin >= eh*60+endMin {
		// Borrowed meridiem produced an inverted range; flip the start.
		sh = to24Hour(startHour, flipMeridiem(startMer))
	}
	if sh < 0 || sh > 23 || eh < 0 || eh > 23 {
		return clockRange{}, false
	}
	if sh*60+startMin >= eh*60+endMin {
		return clockRange{}, false
	}
	return clockRange{startHour: sh, startMin: startMin, endHour: eh, endMin: endMin, pos: offset + m[0]}, true
}

// buildSingle converts a single-time match into a one-hour clockRange.
func buildSingle(snippet string, m []int, offset, hourGroup, minGroup, merGroup int) (clockRange, bool) {
	group := func(i int) string {
		if i < 0 || m[2*i] < 0 {
			return ""
		}
		return snippet[m[2*i]:m[2*i+1]]
	}

	hour, _ := strconv.Atoi(group(hourGroup))
	minute := 0
	if s := group(minGroup); s != "" {
		minute, _ = strconv.Atoi(s)
	}
	mer := strings.ToLower(group(merGroup))

	h := to24Hour(hour, mer)
	if h < 0 || h > 23 || minute > 59 {
		return clockRange{}, false
	}

	endH, endM := h+1, minute
	if endH > 23 {
		endH, endM = 23, 59
	}
	return clockRange{startHour: h, startMin: minute, endHour: endH, endMin: endM, pos: offset + m[0]}, true
}

func to24Hour(hour int, meridiem string) int {
	switch meridiem {
	case "pm":
		if hour < 12 {
			return hour + 12
		}
	case "am":
		if hour == 12 {
			return 0
		}
	}
	return hour
}

func flipMeridiem(m string) string {
	switch m {
	case "am":
		return "pm"
	case "pm":
		return "am"
	default:
		return m
	}
}

// standaloneTimes returns clock times that are not within the attachment
// window of any date token.
func standaloneTimes(text string, tokens []dateToken) []clockRange {
	var ranges []clockRange

	appendIfStandalone := func(rng clockRange) {
		for _, token := range tokens {
			lo := token.pos - attachmentWindow - 10
			hi := token.end + attachmentWindow
			if rng.pos >= lo && rng.pos < hi {
				return
			}
		}
		ranges = append(ranges, rng)
	}

	for _, m := range explicitRangePattern.FindAllStringSubmatchIndex(text, -1) {
		if rng, ok := buildRange(text, m, 0); ok {
			appendIfStandalone(rng)
		}
	}
	for _, m := range compactRangePattern.FindAllStringSubmatchIndex(text, -1) {
		if rng, ok := buildRange(text, m, 0); ok {
			appendIfStandalone(rng)
		}
	}
	for _, m := range bareTimePattern.FindAllStringSubmatchIndex(text, -1) {
		var rng clockRange
		var ok bool
		if m[2] >= 0 {
			rng, ok = buildSingle(text, m, 0, 1, 2, 3)
		} else {
			rng, ok = buildSingle(text, m, 0, 4, -1, 5)
		}
		if !ok {
			continue
		}
		// Skip times already covered by a range match at the same spot.
		covered := false
		for _, existing := range ranges {
			if rng.pos >= existing.pos && rng.pos <= existing.pos+20 {
				covered = true
				break
			}
		}
		if !covered {
			appendIfStandalone(rng)
		}
	}

	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].pos < ranges[j].pos })
	return ranges
}
