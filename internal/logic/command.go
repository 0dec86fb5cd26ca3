package logic

import (
	"strconv"
	"strings"
)

// StateToken is the only state token that switches a channel on.
// Matching is case-sensitive; every other token means off.
const StateToken = "on"

// Command is a parsed relay instruction.
type Command struct {
	Channel int
	On      bool
}

// ParseCommand parses a "<channel>:<state>" line such as "1:on".
//
// Surrounding whitespace is trimmed. Only the first colon separates the
// channel from the state, so "1:on:x" has state "on:x" (and means off).
// The channel substring is read like a lenient atoi: leading digits only,
// anything unparsable yields 0, which no channel table accepts.
// Returns false if the line has no colon.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	id, state, found := strings.Cut(line, ":")
	if !found {
		return Command{}, false
	}
	return Command{
		Channel: leadingInt(id),
		On:      state == StateToken,
	}, true
}

// leadingInt parses an optional sign followed by leading decimal digits.
// Trailing garbage is ignored; no digits at all yields 0.
func leadingInt(s string) int {
	s = strings.TrimLeft(s, " \t")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// overflow: out of range for any channel table anyway
		return -1
	}
	return n
}
