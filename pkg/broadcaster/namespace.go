package broadcaster

import "strings"

// patternEscaper escapes the glob metacharacters understood by the
// broker's pattern matching.
var patternEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// scoped returns the channel name inside the namespace of id.
func scoped(id, channel string) string {
	return id + ":" + channel
}

// namespacePattern returns the pattern matching every channel in the
// namespace of id. The id is escaped so an id such as "a*" cannot match
// channels of another namespace.
func namespacePattern(id string) string {
	return patternEscaper.Replace(id) + ":*"
}
