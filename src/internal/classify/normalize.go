package classify

import (
	"encoding/xml"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"isbnscan/src/internal/catalog"
)

type work struct {
	Author string `xml:"author,attr"`
	Title  string `xml:"title,attr"`
	Low    string `xml:"lyr,attr"`
	High   string `xml:"hyr,attr"`
}

type document struct {
	XMLName xml.Name `xml:"classify"`
	Work    *work    `xml:"work"`
	Works   struct {
		Work []work `xml:"work"`
	} `xml:"works"`
}

// Normalizer converts Classify XML into records. ISBN and FilePath are left
// for the caller to stamp.
type Normalizer struct {
	log *zap.Logger
}

// NewNormalizer returns a Normalizer logging parse failures to log.
func NewNormalizer(log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{log: log}
}

// Normalize extracts one record per distinct work. A document with a direct
// <work> child yields that work only; otherwise every <works><work> entry is
// used in document order. Unparsable input yields nil.
func (n *Normalizer) Normalize(body string) []catalog.Record {
	var doc document
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		n.log.Debug("unparsable classify response", zap.Error(err), zap.Int("bytes", len(body)))
		return nil
	}

	works := doc.Works.Work
	if doc.Work != nil {
		works = []work{*doc.Work}
	}
	var set catalog.Set
	for _, w := range works {
		set.Add(catalog.Record{
			Author:   strings.TrimSpace(w.Author),
			Title:    strings.TrimSpace(w.Title),
			LowYear:  year(w.Low),
			HighYear: year(w.High),
		})
	}
	return set.Records()
}

func year(s string) int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return y
}
