package chassis

import "strings"

// Compare orders two chassis codes. It returns -1, 0 or +1.
// Inputs are normalized before comparison.
func Compare(a, b string) int {
	a, b = Normalize(a), Normalize(b)
	if a == b {
		return 0
	}
	if IsNumeric(a) && IsNumeric(b) {
		if c := compareDigits(a, b); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	}

	ta, tb := tokenize(a), tokenize(b)
	for i := 0; i < len(ta) && i < len(tb); i++ {
		x, y := ta[i], tb[i]
		switch {
		case x.digits && y.digits:
			if c := compareDigits(x.text, y.text); c != 0 {
				return c
			}
		case x.digits != y.digits:
			// digit runs sort ahead of letter runs, matching byte order
			if x.digits {
				return -1
			}
			return 1
		default:
			if c := strings.Compare(x.text, y.text); c != 0 {
				return c
			}
		}
	}
	switch {
	case len(ta) < len(tb):
		return -1
	case len(ta) > len(tb):
		return 1
	}
	// equal token-wise, e.g. ALB036 and ALB36
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

type token struct {
	text   string
	digits bool
}

func tokenize(code string) []token {
	out := make([]token, 0, 4)
	start := 0
	for i := 1; i <= len(code); i++ {
		if i == len(code) || isDigit(code[i]) != isDigit(code[start]) {
			out = append(out, token{text: code[start:i], digits: isDigit(code[start])})
			start = i
		}
	}
	return out
}

// compareDigits compares two digit strings by value without overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
