package fault

import "regexp"

var scrubRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	// user:password@ in URLs.
	{regexp.MustCompile(`(?i)([a-z][a-z0-9+.-]*://)[^/@\s:]+:[^/@\s]+@`), "${1}***@"},
	{regexp.MustCompile(`(?i)(bearer\s+)[a-z0-9._~+/=-]+`), "${1}***"},
	{regexp.MustCompile(`(?i)((?:api[_-]?key|token|secret|password|signature|x-goog-signature)=)[^&\s"']+`), "${1}***"},
}

// Scrub redacts credentials from error text before it is logged or stored.
func Scrub(s string) string {
	for _, r := range scrubRules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}
