package pubsub

// MatchPattern reports whether channel matches a Redis PSUBSCRIBE style
// glob pattern. Supported syntax: * (any run of bytes), ? (one byte),
// [abc], [^abc], [a-z] and backslash escapes.
func MatchPattern(pattern, channel string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for len(pattern) > 1 && pattern[1] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(channel); i++ {
				if MatchPattern(pattern[1:], channel[i:]) {
					return true
				}
			}
			return false

		case '?':
			if len(channel) == 0 {
				return false
			}
			pattern = pattern[1:]
			channel = channel[1:]

		case '[':
			if len(channel) == 0 {
				return false
			}
			var matched bool
			matched, pattern = matchClass(pattern[1:], channel[0])
			if !matched {
				return false
			}
			channel = channel[1:]

		default:
			if pattern[0] == '\\' && len(pattern) >= 2 {
				pattern = pattern[1:]
			}
			if len(channel) == 0 || pattern[0] != channel[0] {
				return false
			}
			pattern = pattern[1:]
			channel = channel[1:]
		}
	}
	return len(channel) == 0
}

// matchClass matches c against the character class at the start of
// pattern (just after '[') and returns the pattern remaining after the
// closing ']'. An unterminated class runs to the end of the pattern.
func matchClass(pattern string, c byte) (bool, string) {
	negate := len(pattern) > 0 && pattern[0] == '^'
	if negate {
		pattern = pattern[1:]
	}

	matched := false
	for len(pattern) > 0 && pattern[0] != ']' {
		switch {
		case pattern[0] == '\\' && len(pattern) >= 2:
			if pattern[1] == c {
				matched = true
			}
			pattern = pattern[2:]
		case len(pattern) >= 3 && pattern[1] == '-':
			lo, hi := pattern[0], pattern[2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			pattern = pattern[3:]
		default:
			if pattern[0] == c {
				matched = true
			}
			pattern = pattern[1:]
		}
	}
	if len(pattern) > 0 {
		pattern = pattern[1:]
	}

	if negate {
		matched = !matched
	}
	return matched, pattern
}
