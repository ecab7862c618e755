package bus

import "strings"

// topicSeparator splits a topic into its segments.
const topicSeparator = ":"

// MatchTopic reports whether topic matches pattern, where pattern segments
// may be "*" (match exactly one segment) or "#" (match zero or more
// trailing segments; only valid as the final pattern segment).
//
// Params:
//   - pattern: a subscription pattern, e.g. "process:*:started" or "process:#".
//   - topic: a concrete published topic, e.g. "process:web-1:started".
//
// Returns:
//   - bool: true if topic satisfies pattern.
func MatchTopic(pattern, topic string) bool {
	pSegs := strings.Split(pattern, topicSeparator)
	tSegs := strings.Split(topic, topicSeparator)

	for i, p := range pSegs {
		if p == "#" {
			// "#" consumes everything remaining, including zero segments.
			return true
		}
		if i >= len(tSegs) {
			return false
		}
		if p == "*" {
			continue
		}
		if p != tSegs[i] {
			return false
		}
	}
	return len(pSegs) == len(tSegs)
}
