package captcha

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAnswer(t *testing.T) {
	testCases := []struct {
		text   string
		expect string
		ok     bool
	}{
		{text: "42", expect: "42", ok: true},
		{text: " 42\n", expect: "42", ok: true},
		{text: "The answer is 42.", expect: "42", ok: true},
		{text: "25+17=?", expect: "42", ok: true},
		{text: "25 + 17", expect: "42", ok: true},
		{text: "12-4", expect: "8", ok: true},
		{text: "6*7", expect: "42", ok: true},
		{text: "6 x 7", expect: "42", ok: true},
		{text: "25 17", expect: "42", ok: true},
		{text: "= 047", expect: "47", ok: true},
		{text: "", expect: "", ok: false},
		{text: "no digits here", expect: "", ok: false},
		{text: "+?", expect: "", ok: false},
	}

	for _, test := range testCases {
		answer, ok := ParseAnswer(test.text)
		require.Equal(t, test.ok, ok, "text: %q", test.text)
		require.Equal(t, test.expect, answer, "text: %q", test.text)
	}
}
