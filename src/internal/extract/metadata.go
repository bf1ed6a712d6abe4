package extract

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Metadata is the document metadata reported by Tika's /meta endpoint, keyed
// by Tika property name. Multi-valued properties keep every value.
type Metadata map[string][]string

var titleKeys = []string{"dc:title", "title", "pdf:docinfo:title", "meta:title"}

var identifierKeys = []string{"dc:identifier", "identifier", "meta:identifier", "xmp:Identifier", "isbn", "ISBN"}

// Title returns the first non-empty title property.
func (m Metadata) Title() string {
	for _, k := range titleKeys {
		for _, v := range m[k] {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// Identifiers returns the values of the identifier properties, in key order.
func (m Metadata) Identifiers() []string {
	var out []string
	for _, k := range identifierKeys {
		for _, v := range m[k] {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// Metadata uploads data to /meta and decodes the JSON properties.
func (c *Client) Metadata(ctx context.Context, data []byte, mimeType string) (Metadata, error) {
	resp, err := c.put(ctx, c.base+"/meta", data, mimeType, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "tika: read metadata")
	}
	return decodeMetadata(b)
}

func decodeMetadata(b []byte) (Metadata, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "tika: decode metadata")
	}
	md := make(Metadata, len(raw))
	for k, v := range raw {
		var one string
		if err := json.Unmarshal(v, &one); err == nil {
			md[k] = []string{one}
			continue
		}
		var many []string
		if err := json.Unmarshal(v, &many); err == nil {
			md[k] = many
		}
	}
	return md, nil
}
