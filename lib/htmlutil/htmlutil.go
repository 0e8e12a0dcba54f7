package htmlutil

import (
	"regexp"
	"strings"
	"unicode"
)

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// collapses a scraped text node into a single printable line
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	s = innerWhitespace.ReplaceAllString(s, " ")
	return s
}
