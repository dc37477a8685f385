// Package osmxml is a stream based parser for OSM XML files (.osm).
package osmxml

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"

	"github.com/omniscale/osmcsv/element"
)

type Config struct {
	// Elements specifies the destination for parsed nodes, ways and
	// relations. Elements are sent in document order. Relations are sent
	// without any tags or members.
	Elements chan *element.RawElement

	// KeepOpen specifies whether the Elements channel should be kept open
	// after Parse(). By default, the channel is closed after Parse().
	KeepOpen bool
}

// Parser reads elements from an OSM XML document. It can only be parsed
// once, the document is read forward only.
type Parser struct {
	reader io.Reader
	conf   Config
	err    error
}

// New creates a new parser for the provided input.
func New(r io.Reader, conf Config) *Parser {
	return &Parser{reader: r, conf: conf}
}

// NewGZIP returns a parser from a GZIP compressed io.Reader.
func NewGZIP(r io.Reader, conf Config) (*Parser, error) {
	r, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return New(r, conf), nil
}

// NewBZIP2 returns a parser from a BZIP2 compressed io.Reader.
func NewBZIP2(r io.Reader, conf Config) *Parser {
	return New(bzip2.NewReader(r), conf)
}

// Error returns the first error that occurred during Parse calls.
func (p *Parser) Error() error {
	return p.err
}

// Parse parses the document and sends all elements to the Elements
// channel. Parse returns nil at the end of the document.
func (p *Parser) Parse(ctx context.Context) (err error) {
	if p.err != nil {
		return p.err
	}

	defer func() {
		if err != nil {
			p.err = err
		}
	}()

	if !p.conf.KeepOpen {
		defer func() {
			if p.conf.Elements != nil {
				close(p.conf.Elements)
			}
		}()
	}

	decoder := xml.NewDecoder(p.reader)
	// documents with encoding="ISO-8859-1" etc. are converted to UTF-8
	decoder.CharsetReader = charset.NewReaderLabel

	var elem *element.RawElement

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "decoding next XML token")
		}

		switch tok := token.(type) {
		case xml.StartElement:
			switch tok.Name.Local {
			case "node", "way":
				elem = &element.RawElement{
					Kind:  element.KindValues[tok.Name.Local],
					Attrs: attrs(tok.Attr),
				}
			case "relation":
				rel := &element.RawElement{
					Kind:  element.RelationKind,
					Attrs: attrs(tok.Attr),
				}
				if err := decoder.Skip(); err != nil {
					return errors.Wrapf(err, "skipping relation %s", rel.Attrs["id"])
				}
				if err := p.send(ctx, rel); err != nil {
					return err
				}
			case "tag":
				if elem == nil {
					// tags of unsupported elements, e.g. changesets
					continue
				}
				var tag element.Tag
				for _, attr := range tok.Attr {
					switch attr.Name.Local {
					case "k":
						tag.Key = attr.Value
					case "v":
						tag.Value = attr.Value
					}
				}
				elem.Tags = append(elem.Tags, tag)
			case "nd":
				if elem == nil || elem.Kind != element.WayKind {
					continue
				}
				var nd element.NodeRef
				for _, attr := range tok.Attr {
					if attr.Name.Local == "ref" {
						nd.Ref = attr.Value
					}
				}
				elem.Refs = append(elem.Refs, nd)
			default:
				// osm, bounds, etc.
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "node", "way":
				if elem == nil {
					continue
				}
				if err := p.send(ctx, elem); err != nil {
					return err
				}
				elem = nil
			}
		}
	}
}

func (p *Parser) send(ctx context.Context, elem *element.RawElement) error {
	select {
	case p.conf.Elements <- elem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func attrs(xmlAttrs []xml.Attr) element.Attrs {
	a := make(element.Attrs, len(xmlAttrs))
	for _, attr := range xmlAttrs {
		a[attr.Name.Local] = attr.Value
	}
	return a
}
