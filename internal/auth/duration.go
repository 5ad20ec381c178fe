package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var relativeExpiry = regexp.MustCompile(`^(\d+)([dw])$`)

// ParseExpiry turns a token lifetime into an expiry instant relative to now.
// Accepted forms:
//   - "" or "never": no expiry (nil)
//   - Go durations: "12h", "90m"
//   - days or weeks: "30d", "2w"
//   - calendar dates: "2026-12-31", "31.12.2026", optionally with " 15:04"
func ParseExpiry(s string, now time.Time) (*time.Time, error) {
	if s == "" || s == "never" {
		return nil, nil
	}

	if dur, err := time.ParseDuration(s); err == nil {
		if dur <= 0 {
			return nil, fmt.Errorf("expiry must be in the future: %s", s)
		}
		t := now.Add(dur)
		return &t, nil
	}

	if m := relativeExpiry.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid expiry: %s", s)
		}
		days := n
		if m[2] == "w" {
			days = n * 7
		}
		t := now.AddDate(0, 0, days)
		return &t, nil
	}

	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02", "02.01.2006 15:04", "02.01.2006"} {
		t, err := time.ParseInLocation(layout, s, now.Location())
		if err != nil {
			continue
		}
		if !t.After(now) {
			return nil, fmt.Errorf("expiry must be in the future: %s", s)
		}
		return &t, nil
	}

	return nil, fmt.Errorf("invalid expiry %q (use 'never', '30d', '2w', '24h' or a date like 2026-12-31)", s)
}
