package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttrsLookup(t *testing.T) {
	attrs := Attrs{"id": "1", "user": ""}

	if v := attrs.Lookup("id"); v == nil || *v != "1" {
		t.Fatal(v)
	}
	if v := attrs.Lookup("user"); v == nil || *v != "" {
		t.Fatal("empty attribute should be present", v)
	}
	if v := attrs.Lookup("uid"); v != nil {
		t.Fatal("missing attribute should be nil", *v)
	}
}

func TestRowsMatchFieldOrder(t *testing.T) {
	node := NodeRecord{ID: 1, Lat: 43.6532, Lon: -79.3832, User: "alice", UID: 2, Version: 3, Changeset: 4, Timestamp: "2016-01-01T00:00:00Z"}
	assert.Equal(t, []string{"1", "43.6532", "-79.3832", "alice", "2", "3", "4", "2016-01-01T00:00:00Z"}, node.Row())
	assert.Len(t, node.Row(), len(NodeFields))

	way := WayRecord{ID: 10, User: "bob", UID: 5, Version: 1, Changeset: 7, Timestamp: "2017-02-03T04:05:06Z"}
	assert.Equal(t, []string{"10", "bob", "5", "1", "7", "2017-02-03T04:05:06Z"}, way.Row())
	assert.Len(t, way.Row(), len(WayFields))

	tag := TagRecord{ID: 10, Key: "street", Value: "Main Street", Type: "addr"}
	assert.Equal(t, []string{"10", "street", "Main Street", "addr"}, tag.Row())

	wn := WayNodeRecord{ID: 10, NodeID: 99, Position: 2}
	assert.Equal(t, []string{"10", "99", "2"}, wn.Row())
	assert.Len(t, wn.Row(), len(WayNodesFields))
}

func TestFieldsCoverColumns(t *testing.T) {
	node := (&NodeRecord{}).Fields()
	for _, f := range NodeFields {
		assert.Contains(t, node, f)
	}
	way := (&WayRecord{}).Fields()
	for _, f := range WayFields {
		assert.Contains(t, way, f)
	}
	wn := (&WayNodeRecord{}).Fields()
	for _, f := range WayNodesFields {
		assert.Contains(t, wn, f)
	}
}

func TestShapedDocument(t *testing.T) {
	s := Shaped{
		Kind:     WayKind,
		Way:      &WayRecord{ID: 1},
		WayNodes: []WayNodeRecord{{ID: 1, NodeID: 5, Position: 0}},
	}
	doc := s.Document()
	assert.Contains(t, doc, WayGroup)
	assert.Len(t, doc[WayNodesGroup], 1)
	assert.Empty(t, doc[WayTagsGroup])
	assert.NotContains(t, doc, NodeGroup)

	doc = (&Shaped{Kind: NodeKind}).Document()
	assert.Contains(t, doc, NodeGroup)
	assert.Nil(t, doc[NodeGroup])
}
