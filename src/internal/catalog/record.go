package catalog

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"

	"isbnscan/src/internal/isbn"
)

// Record is one bibliographic record tied to the file it was found in.
// Records compare equal when every field matches, so they can key a map.
type Record struct {
	FilePath string
	ISBN     isbn.ISBN
	Author   string
	Title    string
	LowYear  int
	HighYear int
}

// wireRecord is the on-disk shape of a Record.
type wireRecord struct {
	FilePath string          `json:"filepath"`
	ISBN     json.RawMessage `json:"isbn"`
	Author   string          `json:"author"`
	Title    string          `json:"title"`
	LowYear  int             `json:"low_year"`
	HighYear int             `json:"high_year"`
}

// MarshalJSON writes the ISBN as its cleaned text so leading zeros and a
// terminal X survive the round trip.
func (r Record) MarshalJSON() ([]byte, error) {
	id, err := json.Marshal(r.ISBN.Text)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireRecord{
		FilePath: r.FilePath,
		ISBN:     id,
		Author:   r.Author,
		Title:    r.Title,
		LowYear:  r.LowYear,
		HighYear: r.HighYear,
	})
}

// UnmarshalJSON accepts the ISBN either as a string or as a bare number.
func (r *Record) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	id, err := decodeISBN(w.ISBN)
	if err != nil {
		return err
	}
	*r = Record{
		FilePath: w.FilePath,
		ISBN:     id,
		Author:   w.Author,
		Title:    w.Title,
		LowYear:  w.LowYear,
		HighYear: w.HighYear,
	}
	return nil
}

func decodeISBN(raw json.RawMessage) (isbn.ISBN, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return isbn.ISBN{}, nil
	}
	if strings.HasPrefix(s, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return isbn.ISBN{}, err
		}
		if v, ok := isbn.Validate(text); ok {
			return v, nil
		}
		// Keep what the previous run wrote even if it no longer validates.
		return isbn.ISBN{Text: isbn.Clean(text)}, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return isbn.ISBN{}, errors.Wrapf(err, "catalog: isbn %s", s)
	}
	text := strconv.FormatUint(n, 10)
	if len(text) < 10 {
		text = strings.Repeat("0", 10-len(text)) + text
	}
	return isbn.ISBN{Value: n, Text: text}, nil
}

// Set is an insertion-ordered set of records.
type Set struct {
	seen  map[Record]struct{}
	items []Record
}

// Add inserts r unless an identical record is already present.
func (s *Set) Add(r Record) bool {
	if s.seen == nil {
		s.seen = make(map[Record]struct{})
	}
	if _, ok := s.seen[r]; ok {
		return false
	}
	s.seen[r] = struct{}{}
	s.items = append(s.items, r)
	return true
}

// Records returns the records in insertion order.
func (s *Set) Records() []Record { return s.items }

// Len returns the number of distinct records.
func (s *Set) Len() int { return len(s.items) }
