package timeparse

import (
	"regexp"
	"strings"
	"time"
)

// timezoneTable maps common abbreviations to IANA zone identifiers. DST and
// standard variants of one region map to the same zone; the correct offset is
// picked per-date during conversion.
var timezoneTable = map[string]string{
	// United States
	"PST": "America/Los_Angeles",
	"PDT": "America/Los_Angeles",
	"MST": "America/Denver",
	"MDT": "America/Denver",
	"CST": "America/Chicago",
	"CDT": "America/Chicago",
	"EST": "America/New_York",
	"EDT": "America/New_York",
	"AKST": "America/Anchorage",
	"AKDT": "America/Anchorage",
	"HST": "Pacific/Honolulu",
	// United Kingdom
	"GMT": "Europe/London",
	"BST": "Europe/London",
	// Europe
	"CET":  "Europe/Berlin",
	"CEST": "Europe/Berlin",
	"EET":  "Europe/Athens",
	"EEST": "Europe/Athens",
	// India
	"IST": "Asia/Kolkata",
	// Japan
	"JST": "Asia/Tokyo",
	// Australia
	"AEST": "Australia/Sydney",
	"AEDT": "Australia/Sydney",
	"ACST": "Australia/Adelaide",
	"AWST": "Australia/Perth",
	// New Zealand
	"NZST": "Pacific/Auckland",
	"NZDT": "Pacific/Auckland",
	// Universal
	"UTC": "UTC",
}

// tzMentionPattern matches a timezone abbreviation directly following a clock
// time, e.g. "10 AM EST" or "14:00 CET".
var tzMentionPattern = regexp.MustCompile(
	`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm)?\s*(PST|PDT|MST|MDT|CST|CDT|EST|EDT|AKST|AKDT|HST|GMT|BST|CET|CEST|EET|EEST|IST|JST|AEST|AEDT|ACST|AWST|NZST|NZDT|UTC)\b`,
)

// ResolveTimezone returns the zone to interpret clock times in. An explicit
// abbreviation next to a clock time always wins over the caller's zone, which
// in turn wins over the configured default. This priority order is a hard
// contract with the extraction layer.
func (r *Resolver) ResolveTimezone(text string, callerZone *time.Location) *time.Location {
	if loc, ok := explicitTimezone(text); ok {
		return loc
	}
	if callerZone != nil {
		return callerZone
	}
	return r.defaultLocation
}

// explicitTimezone scans for an abbreviation adjacent to a clock time.
func explicitTimezone(text string) (*time.Location, bool) {
	m := tzMentionPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	zoneID, ok := timezoneTable[strings.ToUpper(m[1])]
	if !ok {
		return nil, false
	}
	loc, err := time.LoadLocation(zoneID)
	if err != nil {
		return nil, false
	}
	return loc, true
}
