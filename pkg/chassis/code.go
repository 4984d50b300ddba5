// Package chassis normalizes and orders vehicle chassis codes.
//
// Codes are compared with a natural ordering: runs of digits compare as
// integers and runs of letters compare lexically, so ALB36 sorts between
// ALB1 and ALB100. Purely numeric codes compare as integers.
package chassis

import (
	"strings"
	"unicode"
)

// Normalize uppercases the code and strips all whitespace.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// IsNumeric reports whether the normalized code is made only of digits.
func IsNumeric(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// Family returns the leading alphabetic run of the code. Numeric codes have
// an empty family.
func Family(code string) string {
	code = Normalize(code)
	end := 0
	for end < len(code) && !isDigit(code[end]) {
		end++
	}
	return code[:end]
}

// Parts splits a code into its family prefix, the first numeric run and
// whatever follows it. ok is false when the code has no digits.
func Parts(code string) (prefix string, number string, rest string, ok bool) {
	code = Normalize(code)
	i := 0
	for i < len(code) && !isDigit(code[i]) {
		i++
	}
	if i == len(code) {
		return code, "", "", false
	}
	j := i
	for j < len(code) && isDigit(code[j]) {
		j++
	}
	return code[:i], code[i:j], code[j:], true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
