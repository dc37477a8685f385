/*
Package shape turns raw OSM elements into typed output records.

Nodes become a NodeRecord and their TagRecords, ways a WayRecord, the
ordered WayNodeRecords and their TagRecords. Other elements, like relations,
are not shaped.
*/
package shape

import (
	"github.com/pkg/errors"

	"github.com/omniscale/osmcsv/cleaning"
	"github.com/omniscale/osmcsv/element"
	"github.com/omniscale/osmcsv/fields"
)

// Shaper shapes single elements and keeps running tag counts.
// It is not safe for concurrent use.
type Shaper struct {
	cleaner    *cleaning.Cleaner
	nodeFields []string
	wayFields  []string
	counts     TagCounts
}

func New(cleaner *cleaning.Cleaner) *Shaper {
	return &Shaper{
		cleaner:    cleaner,
		nodeFields: element.NodeFields,
		wayFields:  element.WayFields,
	}
}

// Counts returns the tag counts of all elements shaped so far.
func (s *Shaper) Counts() TagCounts {
	return s.counts
}

// Shape returns the shaped element, or nil for element kinds other than
// node and way. Attributes missing from the element are passed as absent
// values and fail for numeric fields.
func (s *Shaper) Shape(elem *element.RawElement) (*element.Shaped, error) {
	switch elem.Kind {
	case element.NodeKind:
		return s.shapeNode(elem)
	case element.WayKind:
		return s.shapeWay(elem)
	}
	return nil, nil
}

func (s *Shaper) shapeNode(elem *element.RawElement) (*element.Shaped, error) {
	v, err := fields.Convert(rawFields(elem.Attrs, s.nodeFields))
	if err != nil {
		return nil, errors.Wrapf(err, "node %s", elem.Attrs["id"])
	}
	node := &element.NodeRecord{
		ID:        v.Int("id"),
		Lat:       v.Float("lat"),
		Lon:       v.Float("lon"),
		User:      v.String("user"),
		UID:       v.Int("uid"),
		Version:   v.Int("version"),
		Changeset: v.Int("changeset"),
		Timestamp: v.String("timestamp"),
	}

	tags, counts, err := Tags(elem.Attrs.Lookup("id"), elem.Tags, s.cleaner)
	if err != nil {
		return nil, errors.Wrapf(err, "tags of node %s", elem.Attrs["id"])
	}
	s.counts.add(counts)

	return &element.Shaped{Kind: element.NodeKind, Node: node, NodeTags: tags}, nil
}

func (s *Shaper) shapeWay(elem *element.RawElement) (*element.Shaped, error) {
	v, err := fields.Convert(rawFields(elem.Attrs, s.wayFields))
	if err != nil {
		return nil, errors.Wrapf(err, "way %s", elem.Attrs["id"])
	}
	way := &element.WayRecord{
		ID:        v.Int("id"),
		User:      v.String("user"),
		UID:       v.Int("uid"),
		Version:   v.Int("version"),
		Changeset: v.Int("changeset"),
		Timestamp: v.String("timestamp"),
	}

	id := elem.Attrs.Lookup("id")
	wayNodes, err := WayNodes(id, elem.Refs)
	if err != nil {
		return nil, errors.Wrapf(err, "nodes of way %s", elem.Attrs["id"])
	}
	tags, counts, err := Tags(id, elem.Tags, s.cleaner)
	if err != nil {
		return nil, errors.Wrapf(err, "tags of way %s", elem.Attrs["id"])
	}
	s.counts.add(counts)

	return &element.Shaped{Kind: element.WayKind, Way: way, WayNodes: wayNodes, WayTags: tags}, nil
}

func rawFields(attrs element.Attrs, names []string) fields.Raw {
	raw := make(fields.Raw, len(names))
	for _, name := range names {
		raw[name] = attrs.Lookup(name)
	}
	return raw
}
