package utils

import "strings"

// Allows you to specify /api/auth/* for a prefix match, or *.png for a suffix match.
// A pattern without a * is a literal match
func MatchesWithWildcard(valueToEvaluate string, matcher string) bool {
	if matcher == "" {
		return false
	}
	if matcher == "*" {
		return true
	}
	if matcher[0] == '*' {
		return strings.HasSuffix(valueToEvaluate, matcher[1:])
	}
	if matcher[len(matcher)-1] == '*' {
		return strings.HasPrefix(valueToEvaluate, matcher[:len(matcher)-1])
	}
	return valueToEvaluate == matcher
}

func SliceHasMatch(matchers []string, value string) bool {
	for _, m := range matchers {
		if MatchesWithWildcard(value, m) {
			return true
		}
	}

	return false
}

// IsLocalPath reports whether p is an absolute path on this host, i.e. safe to redirect to
func IsLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	return !strings.ContainsAny(p, "\r\n")
}
