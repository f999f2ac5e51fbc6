package poller

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the pause between two poll cycles.
const DefaultInterval = 600 * time.Second

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// ParseInterval parses the poll interval.
//
// Supported forms:
//   - Go duration: "10m", "90s"
//   - HH:MM: "00:10" (10 minutes), "01:30"
//   - cron descriptor: "@every 10m"
//
// Optional "interval:" / "every:" prefixes are accepted. Empty means
// DefaultInterval. Calendar cron expressions are rejected: the loop sleeps a
// fixed duration between cycles.
func ParseInterval(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DefaultInterval, nil
	}
	low := strings.ToLower(s)
	for _, p := range []string{"interval:", "every:"} {
		if strings.HasPrefix(low, p) {
			s = strings.TrimSpace(s[len(p):])
			low = strings.ToLower(s)
			break
		}
	}

	if strings.HasPrefix(s, "@") || strings.ContainsAny(s, " \t") {
		sched, err := cron.ParseStandard(s)
		if err != nil {
			return 0, fmt.Errorf("invalid interval %q: %w", raw, err)
		}
		switch c := sched.(type) {
		case cron.ConstantDelaySchedule:
			return c.Delay, nil
		case *cron.ConstantDelaySchedule:
			return c.Delay, nil
		default:
			return 0, fmt.Errorf("interval %q is a calendar schedule; use a fixed interval like '@every 10m'", raw)
		}
	}

	if reHHMM.MatchString(s) {
		return parseHHMM(s)
	}

	d, err := time.ParseDuration(low)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q (use a duration like '10m', HH:MM like '00:10', or '@every 10m')", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}

func parseHHMM(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}
