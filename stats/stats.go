/*
Package stats counts converted elements and rows.

A Statistics reporter prints the current counts as progress once per
second and mirrors all counts to Prometheus counters.
*/
package stats

import (
	"fmt"
	"time"

	"github.com/omniscale/osmcsv/logging"
)

// Counts of a conversion run.
type Counts struct {
	Nodes     int64
	Ways      int64
	Relations int64 // skipped
	NodeTags  int64
	WayTags   int64
	WayNodes  int64

	InvalidTags   int64 // key with problem characters
	RejectedTags  int64 // rejected by the value cleaner
	RewrittenTags int64
}

func (c *Counts) Add(o Counts) {
	c.Nodes += o.Nodes
	c.Ways += o.Ways
	c.Relations += o.Relations
	c.NodeTags += o.NodeTags
	c.WayTags += o.WayTags
	c.WayNodes += o.WayNodes
	c.InvalidTags += o.InvalidTags
	c.RejectedTags += o.RejectedTags
	c.RewrittenTags += o.RewrittenTags
}

func (c Counts) String() string {
	return fmt.Sprintf("Nodes: %d (%d tags) Ways: %d (%d tags, %d nodes) Relations skipped: %d Tags dropped: %d invalid, %d rejected; %d rewritten",
		c.Nodes, c.NodeTags,
		c.Ways, c.WayTags, c.WayNodes,
		c.Relations,
		c.InvalidTags, c.RejectedTags, c.RewrittenTags,
	)
}

type counter struct {
	Counts
	lastReport time.Time
	lastNodes  int64
	lastWays   int64
}

type Statistics struct {
	counts chan Counts
	quit   chan chan Counts
	quiet  bool
}

// Add adds the counts of one or more elements.
func (s *Statistics) Add(c Counts) {
	observe(c)
	s.counts <- c
}

// Stop stops the reporter and returns the total counts.
func (s *Statistics) Stop() Counts {
	result := make(chan Counts)
	s.quit <- result
	return <-result
}

// NewStatsReporter starts a reporter that prints progress every second.
func NewStatsReporter() *Statistics {
	return newStatsReporter(time.Second, false)
}

// NewQuietStatsReporter starts a reporter that only counts.
func NewQuietStatsReporter() *Statistics {
	return newStatsReporter(time.Second, true)
}

func newStatsReporter(interval time.Duration, quiet bool) *Statistics {
	s := &Statistics{
		counts: make(chan Counts, 64),
		quit:   make(chan chan Counts),
		quiet:  quiet,
	}

	go func() {
		c := counter{lastReport: time.Now()}
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case n := <-s.counts:
				c.Add(n)
			case <-tick.C:
				if !s.quiet {
					logging.Progress(c.progress())
				}
			case result := <-s.quit:
				// counts sent before Stop may still be buffered
			Drain:
				for {
					select {
					case n := <-s.counts:
						c.Add(n)
					default:
						break Drain
					}
				}
				result <- c.Counts
				return
			}
		}
	}()
	return s
}

func (c *counter) progress() string {
	dur := time.Since(c.lastReport)
	nodesPS := int64(float64(c.Nodes-c.lastNodes)/dur.Seconds()/100) * 100
	waysPS := int64(float64(c.Ways-c.lastWays)/dur.Seconds()/100) * 100

	msg := fmt.Sprintf("Nodes: %7d/s (%10d) Ways: %7d/s (%9d) Tags: %10d",
		nodesPS, c.Nodes,
		waysPS, c.Ways,
		c.NodeTags+c.WayTags,
	)
	c.lastNodes = c.Nodes
	c.lastWays = c.Ways
	c.lastReport = time.Now()
	return msg
}
