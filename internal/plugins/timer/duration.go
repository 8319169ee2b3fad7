package timer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationTerm = regexp.MustCompile(`(\d+(?:\.\d+)?|\.\d+)\s*([a-zA-Zµ]+)`)

var unitSeconds = map[string]float64{
	"ms": 0.001, "msec": 0.001, "millisecond": 0.001, "milliseconds": 0.001,
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
	"d": 86400, "day": 86400, "days": 86400,
}

// ParseDuration reads a cooking-time phrase such as "10 minutes",
// "1.5 hours", "1 hour 20 min" or "1h30m" and returns its length in
// seconds. Terms with unknown units are ignored.
func ParseDuration(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if d, err := time.ParseDuration(text); err == nil {
		return d.Seconds(), true
	}

	var total float64
	found := false
	for _, m := range durationTerm.FindAllStringSubmatch(text, -1) {
		scale, ok := unitSeconds[strings.ToLower(m[2])]
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		total += n * scale
		found = true
	}
	return total, found
}
