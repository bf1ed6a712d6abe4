// Package isbn validates ISBN-10/ISBN-13 identifiers and finds candidate
// identifiers in free text.
package isbn

import "strconv"

// ISBN is a checksum-validated identifier.
//
// Value is the cleaned form read as an unsigned integer, with a terminal X
// counting as 10. It loses leading zeros, so Text keeps the cleaned string.
type ISBN struct {
	Value uint64
	Text  string
}

// String returns the cleaned textual form.
func (i ISBN) String() string { return i.Text }

// Kind returns 10 or 13, or 0 for the zero ISBN.
func (i ISBN) Kind() int { return len(i.Text) }

// IsZero reports whether i holds no identifier.
func (i ISBN) IsZero() bool { return i.Text == "" }

// Clean strips every character that is not a decimal digit or an uppercase X.
func Clean(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c >= '0' && c <= '9' || c == 'X' {
			out = append(out, c)
		}
	}
	return string(out)
}

// Validate cleans raw and reports whether the result is a valid ISBN-10 or
// ISBN-13. Strings made of a single repeated character are always rejected.
func Validate(raw string) (ISBN, bool) {
	s := Clean(raw)
	if len(s) != 10 && len(s) != 13 {
		return ISBN{}, false
	}
	if repeated(s) {
		return ISBN{}, false
	}
	ok := false
	if len(s) == 10 {
		ok = valid10(s)
	} else {
		ok = valid13(s)
	}
	if !ok {
		return ISBN{}, false
	}
	return ISBN{Value: value(s), Text: s}, true
}

// Parse is Validate for callers that want an error.
func Parse(raw string) (ISBN, error) {
	v, ok := Validate(raw)
	if !ok {
		return ISBN{}, &InvalidError{Raw: raw}
	}
	return v, nil
}

// InvalidError is returned by Parse.
type InvalidError struct{ Raw string }

func (e *InvalidError) Error() string { return "isbn: invalid identifier " + strconv.Quote(e.Raw) }

func repeated(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// valid10 applies weights 10..1; X is only allowed in the last position.
func valid10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		d := 0
		switch {
		case c == 'X' && i == 9:
			d = 10
		case c == 'X':
			return false
		default:
			d = int(c - '0')
		}
		sum += (10 - i) * d
	}
	return sum%11 == 0
}

// valid13 applies alternating weights 1,3 to the first twelve digits.
func valid13(s string) bool {
	sum := 0
	for i := 0; i < 12; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		w := 1
		if i%2 == 1 {
			w = 3
		}
		sum += w * int(c-'0')
	}
	last := s[12]
	if last < '0' || last > '9' {
		return false
	}
	check := int(last - '0')
	return check == (10-sum%10)%10
}

func value(s string) uint64 {
	var v uint64
	for i := 0; i < len(s); i++ {
		if s[i] == 'X' {
			v = v*10 + 10
			continue
		}
		v = v*10 + uint64(s[i]-'0')
	}
	return v
}
