package captcha

import (
	"regexp"
	"strconv"
	"strings"
)

var numberRegex = regexp.MustCompile(`\d+`)

// ParseAnswer normalizes the free-text output of the inference call into
// the numeric captcha answer. the provider gives no schema guarantee, so
// the text is treated as untrusted: a lone number is taken verbatim,
// while an echoed expression like "25+17=?" is evaluated locally. the
// portal's captchas omit the operator on occasion, in which case
// addition is assumed since it dominates the corpus.
func ParseAnswer(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	numbers := numberRegex.FindAllString(text, -1)
	if len(numbers) == 0 {
		return "", false
	}

	if len(numbers) == 1 {
		// either a bare result or an echoed "= 42"; anything else with a
		// single number is unusable noise
		if !strings.ContainsAny(text, "+-*x?") || strings.Contains(text, "=") {
			n, err := strconv.Atoi(numbers[0])
			if err != nil {
				return "", false
			}
			return strconv.Itoa(n), true
		}
		return "", false
	}

	a, err := strconv.Atoi(numbers[0])
	if err != nil {
		return "", false
	}
	b, err := strconv.Atoi(numbers[1])
	if err != nil {
		return "", false
	}

	var result int
	switch {
	case strings.Contains(text, "+"):
		result = a + b
	case strings.Contains(text, "-"):
		result = a - b
	case strings.Contains(text, "*"), strings.Contains(strings.ToLower(text), "x"):
		result = a * b
	default:
		result = a + b
	}
	return strconv.Itoa(result), true
}
