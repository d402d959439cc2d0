package service

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ExcerptLength is the default cutoff for generated excerpts.
const ExcerptLength = 200

var (
	slugStrip      = regexp.MustCompile(`[^\w\s-]`)
	slugSpace      = regexp.MustCompile(`\s+`)
	slugDashes     = regexp.MustCompile(`-+`)
	mdHeader       = regexp.MustCompile(`#{1,6}\s`)
	mdBold         = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdItalic       = regexp.MustCompile(`\*(.+?)\*`)
	mdLink         = regexp.MustCompile(`\[(.+?)\]\(.+?\)`)
	mdCode         = regexp.MustCompile("`(.+?)`")
	newlineRuns    = regexp.MustCompile(`\n+`)
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateSlug turns a title into a URL-safe slug, e.g. "Hello, World!" -> "hello-world".
func GenerateSlug(title string) string {
	s := strings.TrimSpace(strings.ToLower(title))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpace.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// truncateSlug cuts slug to at most n runes without leaving a trailing hyphen.
func truncateSlug(slug string, n int) string {
	r := []rune(slug)
	if len(r) <= n {
		return slug
	}
	return strings.TrimRight(string(r[:n]), "-")
}

// GenerateExcerpt strips common markdown markers from content and cuts the
// result to maxLen characters, appending "..." when it was truncated.
func GenerateExcerpt(content string, maxLen int) string {
	s := mdHeader.ReplaceAllString(content, "")
	s = mdBold.ReplaceAllString(s, "$1")
	s = mdItalic.ReplaceAllString(s, "$1")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdCode.ReplaceAllString(s, "$1")
	s = newlineRuns.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}

// randomSuffix returns n lowercase base36 characters.
func randomSuffix(n int) (string, error) {
	max := big.NewInt(int64(len(suffixAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = suffixAlphabet[idx.Int64()]
	}
	return string(b), nil
}
