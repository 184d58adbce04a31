package tts

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// WaitParser extracts a suggested wait duration from a rate-limit
// message. Returning an error marks the message unparseable; the
// engine then fails the item instead of guessing a wait.
type WaitParser func(message string) (time.Duration, error)

// waitPattern matches the endpoint's fixed hint, e.g.
// "Rate limit exceeded. Retrying in 3 seconds." Only whole seconds are
// recognized; any other unit is unparseable on purpose.
var waitPattern = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+seconds?\b`)

// ParseWaitSeconds is the default WaitParser.
func ParseWaitSeconds(message string) (time.Duration, error) {
	m := waitPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, fmt.Errorf("no wait duration in %q", message)
	}

	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("bad wait duration in %q: %w", message, err)
	}
	return time.Duration(secs) * time.Second, nil
}
