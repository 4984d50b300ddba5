package chassis

import "fmt"

// Interval is an inclusive chassis range. A nil bound is unbounded.
type Interval struct {
	Start *string
	End   *string
}

// NewInterval normalizes the bounds. Empty strings are treated as nil.
func NewInterval(start, end *string) Interval {
	return Interval{Start: normalizePtr(start), End: normalizePtr(end)}
}

func normalizePtr(v *string) *string {
	if v == nil {
		return nil
	}
	n := Normalize(*v)
	if n == "" {
		return nil
	}
	return &n
}

// Universal reports whether both bounds are open.
func (iv Interval) Universal() bool {
	return iv.Start == nil && iv.End == nil
}

// Validate rejects intervals whose start sorts after their end.
func (iv Interval) Validate() error {
	if iv.Start != nil && iv.End != nil && Compare(*iv.Start, *iv.End) > 0 {
		return fmt.Errorf("chassis start %q is after end %q", *iv.Start, *iv.End)
	}
	return nil
}

// Contains reports whether the code falls inside the interval.
//
// A half-open interval only admits codes of the same family as its
// present bound, so a range "ALB1 onwards" never swallows numeric codes.
func (iv Interval) Contains(code string) bool {
	code = Normalize(code)
	if code == "" {
		return false
	}
	switch {
	case iv.Universal():
		return true
	case iv.Start != nil && iv.End == nil:
		if Family(*iv.Start) != Family(code) {
			return false
		}
	case iv.Start == nil && iv.End != nil:
		if Family(*iv.End) != Family(code) {
			return false
		}
	}
	if iv.Start != nil && Compare(code, *iv.Start) < 0 {
		return false
	}
	if iv.End != nil && Compare(code, *iv.End) > 0 {
		return false
	}
	return true
}

// String renders the interval for logs.
func (iv Interval) String() string {
	s, e := "*", "*"
	if iv.Start != nil {
		s = *iv.Start
	}
	if iv.End != nil {
		e = *iv.End
	}
	return s + ".." + e
}
