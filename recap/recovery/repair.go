package recovery

import (
	"regexp"
	"strings"
)

var (
	leadingBeforeBrace = regexp.MustCompile(`^[^{]*`)
	trailingAfterBrace = regexp.MustCompile(`[^}]*$`)
	codeFence          = regexp.MustCompile("```[A-Za-z0-9_+-]*\\s*")
	trailingSeparator  = regexp.MustCompile(`,(\s*[}\]])`)
	bareKey            = regexp.MustCompile(`([{,]\s*)(\w+):`)
	bareValue          = regexp.MustCompile(`:\s*([^",\[\]{}]+)(\s*[,}])`)
	arrayStringSpacing = regexp.MustCompile(`"\s*,\s*"`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
)

// Repair coerces near-JSON model output into decodable JSON. The steps run in a fixed order and later
// steps assume the earlier ones already ran. It is a best-effort filter: colons or commas inside prose
// values can be rewritten, which is why callers try a strict decode first.
func Repair(text string) string {
	s := leadingBeforeBrace.ReplaceAllString(text, "")
	s = trailingAfterBrace.ReplaceAllString(s, "")
	s = codeFence.ReplaceAllString(s, "")
	s = trailingSeparator.ReplaceAllString(s, "${1}")
	s = bareKey.ReplaceAllString(s, `${1}"${2}":`)
	s = bareValue.ReplaceAllString(s, `: "${1}"${2}`)
	s = arrayStringSpacing.ReplaceAllString(s, `", "`)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// isObjectFramed reports whether s looks like a single JSON object.
func isObjectFramed(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}
