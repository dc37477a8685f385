package shape

import (
	"regexp"
	"strings"

	"github.com/omniscale/osmcsv/cleaning"
	"github.com/omniscale/osmcsv/element"
	"github.com/omniscale/osmcsv/fields"
)

// problemChars matches tag keys that are never exported.
var problemChars = regexp.MustCompile(`[=+/&<>;'"?%#$@,. \t\r\n]`)

// TagCounts counts what happened to the tags of one or more elements.
type TagCounts struct {
	Accepted  int64
	Invalid   int64 // key with problem characters
	Rejected  int64 // rejected by the cleaner
	Rewritten int64
}

func (tc *TagCounts) add(o TagCounts) {
	tc.Accepted += o.Accepted
	tc.Invalid += o.Invalid
	tc.Rejected += o.Rejected
	tc.Rewritten += o.Rewritten
}

// SplitKey splits a tag key on the first colon into the namespace type
// and the remaining key. Keys without colon are of RegularTagType.
func SplitKey(k string) (typ, key string) {
	parts := strings.SplitN(k, ":", 2)
	if len(parts) == 1 {
		return element.RegularTagType, k
	}
	return parts[0], parts[1]
}

// Tags converts the tags of the element with the given id to TagRecords
// in document order. Tags with problem characters in the key and tags
// rejected by the cleaner are dropped. Only a malformed id returns an error.
func Tags(id *string, tags []element.Tag, c *cleaning.Cleaner) ([]element.TagRecord, TagCounts, error) {
	var counts TagCounts
	var records []element.TagRecord

	for _, tag := range tags {
		if problemChars.MatchString(tag.Key) {
			counts.Invalid++
			continue
		}
		typ, key := SplitKey(tag.Key)

		v, err := fields.Convert(fields.Raw{
			"id":    id,
			"key":   fields.Str(key),
			"value": fields.Str(tag.Value),
			"type":  fields.Str(typ),
		})
		if err != nil {
			return nil, counts, err
		}
		record := element.TagRecord{
			ID:    v.Int("id"),
			Key:   v.String("key"),
			Value: v.String("value"),
			Type:  v.String("type"),
		}

		result := c.Clean(record)
		switch result.Outcome {
		case cleaning.Rejected:
			counts.Rejected++
			continue
		case cleaning.Rewritten:
			counts.Rewritten++
		}
		counts.Accepted++
		records = append(records, result.Tag)
	}
	return records, counts, nil
}
