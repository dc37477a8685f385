/*
Package cleaning validates and rewrites the values of selected tags.

Postal codes are normalized to the Canadian A1A1A1 form and dropped if they
do not match. Street names with an unexpected last word get their
abbreviations expanded. All other tags pass unchanged.
*/
package cleaning

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/omniscale/osmcsv/element"
)

const (
	PostcodeKey = "postcode"
	StreetKey   = "street"
)

// DefaultStreetCacheSize is the number of distinct street values memoized
// by a Cleaner.
const DefaultStreetCacheSize = 4096

var postcodeRe = regexp.MustCompile(`^[A-Z][0-9][A-Z][0-9][A-Z][0-9]$`)

// expectedStreetTypes are last words of street names that need no rewrite.
var expectedStreetTypes = map[string]struct{}{
	"Street":    {},
	"Avenue":    {},
	"Boulevard": {},
	"Drive":     {},
	"Court":     {},
	"Place":     {},
	"Square":    {},
	"Lane":      {},
	"Road":      {},
	"Trail":     {},
	"Parkway":   {},
	"Commons":   {},
	"Crescent":  {},
	"Close":     {},
	"East":      {},
	"West":      {},
	"North":     {},
	"South":     {},
	"Way":       {},
	"Terrace":   {},
}

// streetMapping replaces single words of a street name. All replacements
// are expected street types, which keeps rewritten names stable.
var streetMapping = map[string]string{
	"St":     "Street",
	"St.":    "Street",
	"STREET": "Street",
	"street": "Street",
	"Ave":    "Avenue",
	"Ave.":   "Avenue",
	"avenue": "Avenue",
	"Blvd":   "Boulevard",
	"Blvd.":  "Boulevard",
	"Rd":     "Road",
	"Rd.":    "Road",
	"Dr":     "Drive",
	"Dr.":    "Drive",
	"Cres":   "Crescent",
	"Pkwy":   "Parkway",
	"Ln":     "Lane",
	"E":      "East",
	"W":      "West",
}

// Outcome of cleaning a single tag.
type Outcome int

const (
	Unchanged Outcome = iota
	Rewritten
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Rewritten:
		return "rewritten"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Result of Cleaner.Clean. Tag is only meaningful if the tag was accepted.
type Result struct {
	Tag     element.TagRecord
	Outcome Outcome
}

func (r Result) Accepted() bool {
	return r.Outcome != Rejected
}

// Cleaner applies the postcode and street rules. Street rewrites are
// memoized, a Cleaner is safe for concurrent use.
type Cleaner struct {
	streets *lru.Cache[string, string]
}

// New returns a Cleaner that memoizes up to cacheSize street values.
// cacheSize <= 0 disables the cache.
func New(cacheSize int) *Cleaner {
	c := &Cleaner{}
	if cacheSize > 0 {
		// only fails for size <= 0
		c.streets, _ = lru.New[string, string](cacheSize)
	}
	return c
}

// Clean returns the tag unchanged, a rewritten copy, or Rejected.
func (c *Cleaner) Clean(tag element.TagRecord) Result {
	switch tag.Key {
	case PostcodeKey:
		code, ok := CleanPostcode(tag.Value)
		if !ok {
			return Result{Outcome: Rejected}
		}
		return rewrite(tag, code)
	case StreetKey:
		return rewrite(tag, c.street(tag.Value))
	}
	return Result{Tag: tag, Outcome: Unchanged}
}

func (c *Cleaner) street(name string) string {
	if c.streets == nil {
		return CleanStreet(name)
	}
	if cleaned, ok := c.streets.Get(name); ok {
		return cleaned
	}
	cleaned := CleanStreet(name)
	c.streets.Add(name, cleaned)
	return cleaned
}

func rewrite(tag element.TagRecord, value string) Result {
	if value == tag.Value {
		return Result{Tag: tag, Outcome: Unchanged}
	}
	tag.Value = value
	return Result{Tag: tag, Outcome: Rewritten}
}

// CleanPostcode removes all whitespace and uppercases code. It returns false
// if the result is not a letter-digit-letter-digit-letter-digit code.
func CleanPostcode(code string) (string, bool) {
	code = strings.ToUpper(strings.Join(strings.Fields(code), ""))
	if !postcodeRe.MatchString(code) {
		return "", false
	}
	return code, true
}

// CleanStreet returns name unchanged if its last word is an expected street
// type. Otherwise each abbreviated word is expanded and the words are joined
// with single spaces.
func CleanStreet(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return name
	}
	// case sensitive: "STREET" is not expected and gets rewritten through
	// streetMapping
	if _, ok := expectedStreetTypes[words[len(words)-1]]; ok {
		return name
	}
	for i, w := range words {
		if better, ok := streetMapping[w]; ok {
			words[i] = better
		}
	}
	return strings.Join(words, " ")
}
