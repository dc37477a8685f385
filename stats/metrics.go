package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ElementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmcsv_elements_total",
			Help: "Total number of OSM elements read, by kind",
		},
		[]string{"kind"},
	)

	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmcsv_rows_total",
			Help: "Total number of rows written, by table",
		},
		[]string{"table"},
	)

	TagsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmcsv_tags_dropped_total",
			Help: "Total number of tags not written, by reason",
		},
		[]string{"reason"},
	)

	TagsRewrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "osmcsv_tags_rewritten_total",
			Help: "Total number of tags with cleaned values",
		},
	)
)

func observe(c Counts) {
	if c.Nodes > 0 {
		ElementsTotal.WithLabelValues("node").Add(float64(c.Nodes))
		RowsTotal.WithLabelValues("nodes").Add(float64(c.Nodes))
	}
	if c.Ways > 0 {
		ElementsTotal.WithLabelValues("way").Add(float64(c.Ways))
		RowsTotal.WithLabelValues("ways").Add(float64(c.Ways))
	}
	if c.Relations > 0 {
		ElementsTotal.WithLabelValues("relation").Add(float64(c.Relations))
	}
	if c.NodeTags > 0 {
		RowsTotal.WithLabelValues("nodes_tags").Add(float64(c.NodeTags))
	}
	if c.WayTags > 0 {
		RowsTotal.WithLabelValues("ways_tags").Add(float64(c.WayTags))
	}
	if c.WayNodes > 0 {
		RowsTotal.WithLabelValues("ways_nodes").Add(float64(c.WayNodes))
	}
	if c.InvalidTags > 0 {
		TagsDroppedTotal.WithLabelValues("invalid_key").Add(float64(c.InvalidTags))
	}
	if c.RejectedTags > 0 {
		TagsDroppedTotal.WithLabelValues("rejected_value").Add(float64(c.RejectedTags))
	}
	if c.RewrittenTags > 0 {
		TagsRewrittenTotal.Add(float64(c.RewrittenTags))
	}
}
