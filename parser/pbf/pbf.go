// Package pbf reads OSM PBF files and converts the parsed nodes and ways
// into raw elements, so that they take the same path as elements from XML
// files.
package pbf

import (
	"context"
	"io"
	"sort"
	"strconv"

	"github.com/omniscale/go-osm"
	osmpbf "github.com/omniscale/go-osm/parser/pbf"
	"github.com/pkg/errors"

	"github.com/omniscale/osmcsv/element"
)

// TimestampFormat matches the timestamp attribute of OSM XML files.
const TimestampFormat = "2006-01-02T15:04:05Z"

type Config struct {
	// Elements specifies the destination for parsed nodes and ways. PBF
	// relations are not read.
	Elements chan *element.RawElement

	// KeepOpen specifies whether the Elements channel should be kept open
	// after Parse(). By default, the channel is closed after Parse().
	KeepOpen bool
}

type Parser struct {
	reader io.Reader
	conf   Config
	err    error
}

func New(r io.Reader, conf Config) *Parser {
	return &Parser{reader: r, conf: conf}
}

// Error returns the first error that occurred during Parse calls.
func (p *Parser) Error() error {
	return p.err
}

// Parse parses the PBF file and sends all nodes and ways to the Elements
// channel. The file is decoded with a single worker, so the elements keep
// the order of the file.
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

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	nodes := make(chan []osm.Node)
	ways := make(chan []osm.Way)
	parser := osmpbf.New(p.reader, osmpbf.Config{
		IncludeMetadata: true,
		Nodes:           nodes,
		Ways:            ways,
		Concurrency:     1,
	})

	errc := make(chan error, 1)
	go func() {
		errc <- parser.Parse(ctx)
	}()

	for nodes != nil || ways != nil {
		select {
		case err := <-errc:
			// channels are only closed after a successful parse
			if err != nil {
				go drain(nodes, ways)
				return errors.Wrap(err, "parsing PBF")
			}
			errc = nil
		case batch, ok := <-nodes:
			if !ok {
				nodes = nil
				continue
			}
			for i := range batch {
				if err := p.send(ctx, fromNode(&batch[i])); err != nil {
					go drain(nodes, ways)
					return err
				}
			}
		case batch, ok := <-ways:
			if !ok {
				ways = nil
				continue
			}
			for i := range batch {
				if err := p.send(ctx, fromWay(&batch[i])); err != nil {
					go drain(nodes, ways)
					return err
				}
			}
		}
	}
	if errc != nil {
		if err := <-errc; err != nil {
			return errors.Wrap(err, "parsing PBF")
		}
	}
	return nil
}

func (p *Parser) send(ctx context.Context, elem *element.RawElement) error {
	select {
	case p.conf.Elements <- elem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain unblocks the PBF workers after Parse returned early. go-osm only
// closes the channels after a successful parse, so drain keeps running after
// a parse error. Parse errors abort the whole run.
func drain(nodes chan []osm.Node, ways chan []osm.Way) {
	for nodes != nil || ways != nil {
		select {
		case _, ok := <-nodes:
			if !ok {
				nodes = nil
			}
		case _, ok := <-ways:
			if !ok {
				ways = nil
			}
		}
	}
}

func fromNode(n *osm.Node) *element.RawElement {
	attrs := baseAttrs(&n.Element)
	attrs["lat"] = strconv.FormatFloat(n.Lat, 'f', -1, 64)
	attrs["lon"] = strconv.FormatFloat(n.Long, 'f', -1, 64)
	return &element.RawElement{
		Kind:  element.NodeKind,
		Attrs: attrs,
		Tags:  sortedTags(n.Tags),
	}
}

func fromWay(w *osm.Way) *element.RawElement {
	refs := make([]element.NodeRef, len(w.Refs))
	for i, ref := range w.Refs {
		refs[i] = element.NodeRef{Ref: strconv.FormatInt(ref, 10)}
	}
	return &element.RawElement{
		Kind:  element.WayKind,
		Attrs: baseAttrs(&w.Element),
		Tags:  sortedTags(w.Tags),
		Refs:  refs,
	}
}

// baseAttrs returns the id and, if present, the metadata attributes.
func baseAttrs(e *osm.Element) element.Attrs {
	attrs := element.Attrs{"id": strconv.FormatInt(e.ID, 10)}
	if md := e.Metadata; md != nil {
		attrs["user"] = md.UserName
		attrs["uid"] = strconv.FormatInt(int64(md.UserID), 10)
		attrs["version"] = strconv.FormatInt(int64(md.Version), 10)
		attrs["changeset"] = strconv.FormatInt(md.Changeset, 10)
		attrs["timestamp"] = md.Timestamp.UTC().Format(TimestampFormat)
	}
	return attrs
}

// sortedTags returns the tags ordered by key. PBF parsing does not keep the
// original tag order.
func sortedTags(tags osm.Tags) []element.Tag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := make([]element.Tag, len(keys))
	for i, k := range keys {
		result[i] = element.Tag{Key: k, Value: tags[k]}
	}
	return result
}
