package textproc

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Matches site paths like /login or /health-news/covid. The leading
// group enforces that the path does not start mid-word; the character
// class excludes dots so file names like /image.png are not treated as
// site paths.
var pathPattern = regexp.MustCompile(`(^|[^a-zA-Z0-9_])(/[a-zA-Z0-9-]+(?:/[a-zA-Z0-9-]+)*)`)

// FormatLinks rewrites bare site paths in text as markdown links with a
// human-readable name, e.g. "/health-news" becomes
// "[Health News](/health-news)". A path is only replaced where it
// stands alone: preceded by a space, start of text or an opening
// parenthesis, and followed by a space, end of text, a period or a
// comma.
func FormatLinks(text string) string {
	matches := pathPattern.FindAllStringSubmatch(text, -1)
	if matches == nil {
		return text
	}

	paths := lo.Uniq(lo.Map(matches, func(m []string, _ int) string {
		return m[2]
	}))

	processed := text
	for _, path := range paths {
		link := "[" + linkName(path) + "](" + path + ")"
		replacement := regexp.MustCompile(`(\s|^|\()` + regexp.QuoteMeta(path) + `(\s|$|\.|,)`)
		processed = replacement.ReplaceAllString(processed, "${1}"+link+"${2}")
	}
	return processed
}

// linkName derives a display name from a path: strip the leading slash,
// turn hyphens into spaces and capitalize each word.
func linkName(path string) string {
	name := strings.ReplaceAll(strings.TrimPrefix(path, "/"), "-", " ")

	runes := []rune(name)
	atWordStart := true
	for i, r := range runes {
		if atWordStart && r >= 'a' && r <= 'z' {
			runes[i] = r - ('a' - 'A')
		}
		atWordStart = !isWordChar(r)
	}
	return string(runes)
}

func isWordChar(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
