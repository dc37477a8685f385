/*
Package process converts an OSM file into the CSV tables.

Elements are parsed in a background goroutine and shaped, validated and
written one at a time in document order. The first error aborts the run.
Rows written before the error remain in the output files.
*/
package process

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/omniscale/osmcsv/cleaning"
	"github.com/omniscale/osmcsv/element"
	"github.com/omniscale/osmcsv/logging"
	"github.com/omniscale/osmcsv/reader"
	"github.com/omniscale/osmcsv/shape"
	"github.com/omniscale/osmcsv/stats"
	"github.com/omniscale/osmcsv/validate"
	"github.com/omniscale/osmcsv/writer"
)

var log = logging.NewLogger("process")

type Options struct {
	Input string
	// Validate checks each shaped element with Validator before it is
	// written.
	Validate  bool
	Validator validate.Validator

	OutDir string
	Names  writer.Names

	// StreetCacheSize is the number of memoized street name rewrites.
	StreetCacheSize int
	Quiet           bool
}

// Run converts opts.Input and returns the counts of the run.
func Run(ctx context.Context, opts Options) (counts stats.Counts, err error) {
	if opts.Validate && opts.Validator == nil {
		opts.Validator = validate.NewSchemaValidator(validate.DefaultSchema())
	}

	w, err := writer.Open(opts.OutDir, opts.Names)
	if err != nil {
		return counts, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing output")
		}
	}()

	elems := make(chan *element.RawElement, 64)
	r, err := reader.Open(opts.Input, elems)
	if err != nil {
		return counts, err
	}
	defer r.Close()

	var progress *stats.Statistics
	if opts.Quiet {
		progress = stats.NewQuietStatsReporter()
	} else {
		progress = stats.NewStatsReporter()
	}
	defer func() {
		counts = progress.Stop()
	}()

	shaper := shape.New(cleaning.New(opts.StreetCacheSize))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.Parse(ctx)
	})
	g.Go(func() error {
		for elem := range elems {
			if err := handle(shaper, opts.Validator, w, progress, elem); err != nil {
				return err
			}
		}
		return nil
	})
	return counts, g.Wait()
}

func handle(shaper *shape.Shaper, v validate.Validator, w *writer.Writer, progress *stats.Statistics, elem *element.RawElement) error {
	before := shaper.Counts()
	shaped, err := shaper.Shape(elem)
	if err != nil {
		return err
	}
	if shaped == nil {
		if elem.Kind == element.RelationKind {
			progress.Add(stats.Counts{Relations: 1})
		}
		return nil
	}
	if v != nil {
		if err := v.Validate(shaped); err != nil {
			return errors.Wrapf(err, "validating %s", elem)
		}
	}
	if err := w.Write(shaped); err != nil {
		return err
	}

	after := shaper.Counts()
	c := stats.Counts{
		InvalidTags:   after.Invalid - before.Invalid,
		RejectedTags:  after.Rejected - before.Rejected,
		RewrittenTags: after.Rewritten - before.Rewritten,
	}
	switch shaped.Kind {
	case element.NodeKind:
		c.Nodes = 1
		c.NodeTags = int64(len(shaped.NodeTags))
	case element.WayKind:
		c.Ways = 1
		c.WayNodes = int64(len(shaped.WayNodes))
		c.WayTags = int64(len(shaped.WayTags))
	}
	progress.Add(c)
	return nil
}
