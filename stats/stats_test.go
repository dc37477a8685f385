package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatisticsStop(t *testing.T) {
	s := newStatsReporter(time.Hour, true)
	for i := 0; i < 100; i++ {
		s.Add(Counts{Nodes: 1, NodeTags: 2})
	}
	s.Add(Counts{Ways: 1, WayNodes: 5, WayTags: 1, InvalidTags: 1})
	s.Add(Counts{Relations: 1})

	c := s.Stop()
	assert.Equal(t, Counts{
		Nodes: 100, NodeTags: 200,
		Ways: 1, WayNodes: 5, WayTags: 1,
		Relations:   1,
		InvalidTags: 1,
	}, c)
}

func TestCountsString(t *testing.T) {
	c := Counts{Nodes: 2, NodeTags: 3, Ways: 1, RejectedTags: 4}
	assert.Contains(t, c.String(), "Nodes: 2 (3 tags)")
	assert.Contains(t, c.String(), "4 rejected")
}

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(RowsTotal.WithLabelValues("ways_nodes"))
	rewrittenBefore := testutil.ToFloat64(TagsRewrittenTotal)

	observe(Counts{WayNodes: 3, RewrittenTags: 2})

	assert.Equal(t, before+3, testutil.ToFloat64(RowsTotal.WithLabelValues("ways_nodes")))
	assert.Equal(t, rewrittenBefore+2, testutil.ToFloat64(TagsRewrittenTotal))
}
