/*
Package writer writes shaped elements to five CSV files.

Each table is written without header row, columns in the order of the
element field lists. Values with delimiters, quotes or newlines are quoted.
*/
package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/omniscale/osmcsv/element"
	"github.com/omniscale/osmcsv/logging"
)

var log = logging.NewLogger("writer")

// Names are the file names of the five tables.
type Names struct {
	Nodes    string `yaml:"nodes"`
	NodeTags string `yaml:"nodes_tags"`
	Ways     string `yaml:"ways"`
	WayNodes string `yaml:"ways_nodes"`
	WayTags  string `yaml:"ways_tags"`
}

var DefaultNames = Names{
	Nodes:    "nodes.csv",
	NodeTags: "nodes_tags.csv",
	Ways:     "ways.csv",
	WayNodes: "ways_nodes.csv",
	WayTags:  "ways_tags.csv",
}

// WithDefaults returns n with empty names replaced by DefaultNames.
func (n Names) WithDefaults() Names {
	if n.Nodes == "" {
		n.Nodes = DefaultNames.Nodes
	}
	if n.NodeTags == "" {
		n.NodeTags = DefaultNames.NodeTags
	}
	if n.Ways == "" {
		n.Ways = DefaultNames.Ways
	}
	if n.WayNodes == "" {
		n.WayNodes = DefaultNames.WayNodes
	}
	if n.WayTags == "" {
		n.WayTags = DefaultNames.WayTags
	}
	return n
}

// Table is one output file.
type Table struct {
	Name   string
	File   string
	Fields []string
}

// Tables returns all tables in load order: parents before their tags and
// node memberships.
func (n Names) Tables() []Table {
	n = n.WithDefaults()
	return []Table{
		{"nodes", n.Nodes, element.NodeFields},
		{"nodes_tags", n.NodeTags, element.NodeTagsFields},
		{"ways", n.Ways, element.WayFields},
		{"ways_nodes", n.WayNodes, element.WayNodesFields},
		{"ways_tags", n.WayTags, element.WayTagsFields},
	}
}

type tableWriter struct {
	file *os.File
	csv  *csv.Writer
}

func (tw *tableWriter) writeRow(row []string) error {
	return tw.csv.Write(row)
}

func (tw *tableWriter) close() error {
	tw.csv.Flush()
	err := tw.csv.Error()
	if cerr := tw.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Writer routes shaped elements to the table files. Close must be called
// on all exit paths to flush buffered rows.
type Writer struct {
	nodes    *tableWriter
	nodeTags *tableWriter
	ways     *tableWriter
	wayNodes *tableWriter
	wayTags  *tableWriter
}

// Open creates (or truncates) all table files in dir. dir is created if it
// does not exist.
func Open(dir string, names Names) (*Writer, error) {
	names = names.WithDefaults()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating output dir")
	}

	w := &Writer{}
	targets := []struct {
		tw   **tableWriter
		name string
	}{
		{&w.nodes, names.Nodes},
		{&w.nodeTags, names.NodeTags},
		{&w.ways, names.Ways},
		{&w.wayNodes, names.WayNodes},
		{&w.wayTags, names.WayTags},
	}
	for _, t := range targets {
		fname := filepath.Join(dir, t.name)
		f, err := os.Create(fname)
		if err != nil {
			w.Close()
			return nil, errors.Wrapf(err, "creating %s", fname)
		}
		*t.tw = &tableWriter{file: f, csv: csv.NewWriter(f)}
	}
	log.Printf("writing tables to %s", dir)
	return w, nil
}

// Write writes all records of the shaped element.
func (w *Writer) Write(s *element.Shaped) error {
	switch s.Kind {
	case element.NodeKind:
		if err := w.nodes.writeRow(s.Node.Row()); err != nil {
			return errors.Wrap(err, "writing node")
		}
		for i := range s.NodeTags {
			if err := w.nodeTags.writeRow(s.NodeTags[i].Row()); err != nil {
				return errors.Wrap(err, "writing node tag")
			}
		}
	case element.WayKind:
		if err := w.ways.writeRow(s.Way.Row()); err != nil {
			return errors.Wrap(err, "writing way")
		}
		for i := range s.WayNodes {
			if err := w.wayNodes.writeRow(s.WayNodes[i].Row()); err != nil {
				return errors.Wrap(err, "writing way node")
			}
		}
		for i := range s.WayTags {
			if err := w.wayTags.writeRow(s.WayTags[i].Row()); err != nil {
				return errors.Wrap(err, "writing way tag")
			}
		}
	default:
		return errors.Errorf("unsupported element kind %q", s.Kind)
	}
	return nil
}

// Close flushes and closes all files and returns the first error.
func (w *Writer) Close() error {
	var firstErr error
	for _, tw := range []*tableWriter{w.nodes, w.nodeTags, w.ways, w.wayNodes, w.wayTags} {
		if tw == nil {
			continue
		}
		if err := tw.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
