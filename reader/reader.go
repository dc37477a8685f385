/*
Package reader opens OSM input files and streams their elements.

The parser is selected by the file extension: .osm (XML), .osm.gz,
.osm.bz2 and .pbf. All parsers send elements in file order.
*/
package reader

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/omniscale/osmcsv/element"
	"github.com/omniscale/osmcsv/logging"
	"github.com/omniscale/osmcsv/parser/osmxml"
	"github.com/omniscale/osmcsv/parser/pbf"
)

var log = logging.NewLogger("reader")

// Format of an input file.
type Format int

const (
	XML Format = iota
	XMLGzip
	XMLBzip2
	PBF
)

func (f Format) String() string {
	switch f {
	case XML:
		return "osm"
	case XMLGzip:
		return "osm.gz"
	case XMLBzip2:
		return "osm.bz2"
	case PBF:
		return "pbf"
	}
	return "unknown"
}

// FormatOf returns the format for the file name. Unknown extensions are
// read as XML.
func FormatOf(fname string) Format {
	lower := strings.ToLower(fname)
	switch {
	case strings.HasSuffix(lower, ".pbf"):
		return PBF
	case strings.HasSuffix(lower, ".gz"):
		return XMLGzip
	case strings.HasSuffix(lower, ".bz2"):
		return XMLBzip2
	}
	return XML
}

type parser interface {
	Parse(ctx context.Context) error
}

// Reader streams the elements of one input file. A Reader can only be
// parsed once. Open a new Reader to read the file again.
type Reader struct {
	fname  string
	file   *os.File
	parser parser
}

// Open opens fname. Parse sends all elements to elems and closes elems
// when done.
func Open(fname string, elems chan *element.RawElement) (*Reader, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "opening input")
	}

	r := &Reader{fname: fname, file: f}
	format := FormatOf(fname)
	switch format {
	case PBF:
		r.parser = pbf.New(f, pbf.Config{Elements: elems})
	case XMLGzip:
		p, err := osmxml.NewGZIP(f, osmxml.Config{Elements: elems})
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "opening %s", fname)
		}
		r.parser = p
	case XMLBzip2:
		r.parser = osmxml.NewBZIP2(f, osmxml.Config{Elements: elems})
	default:
		r.parser = osmxml.New(f, osmxml.Config{Elements: elems})
	}
	log.Printf("reading %s as %s", fname, format)
	return r, nil
}

func (r *Reader) Parse(ctx context.Context) error {
	if err := r.parser.Parse(ctx); err != nil {
		return errors.Wrapf(err, "reading %s", r.fname)
	}
	return nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}
