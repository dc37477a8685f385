package element

import (
	"fmt"
	"strconv"
)

// Kind is the XML element name of an OSM entity.
type Kind string

const (
	NodeKind     Kind = "node"
	WayKind      Kind = "way"
	RelationKind Kind = "relation"
)

var KindValues = map[string]Kind{
	"node":     NodeKind,
	"way":      WayKind,
	"relation": RelationKind,
}

// Attrs contains the raw XML attributes of an element.
type Attrs map[string]string

// Lookup returns a pointer to the attribute value, or nil if the attribute
// is absent.
func (a Attrs) Lookup(name string) *string {
	v, ok := a[name]
	if !ok {
		return nil
	}
	return &v
}

// A Tag is a raw <tag k="" v=""/> child. Missing attributes are empty.
type Tag struct {
	Key   string
	Value string
}

// A NodeRef is a raw <nd ref=""/> child of a way.
type NodeRef struct {
	Ref string
}

// RawElement is a single node, way or relation as read from the input,
// before any type conversion.
type RawElement struct {
	Kind  Kind
	Attrs Attrs
	// Tags in document order.
	Tags []Tag
	// Refs in document order. Only set for ways.
	Refs []NodeRef
}

func (e *RawElement) String() string {
	return fmt.Sprintf("%s %s", e.Kind, e.Attrs["id"])
}

// Column names for each output table. The order matches the columns of the
// target SQL tables.
var (
	NodeFields     = []string{"id", "lat", "lon", "user", "uid", "version", "changeset", "timestamp"}
	NodeTagsFields = []string{"id", "key", "value", "type"}
	WayFields      = []string{"id", "user", "uid", "version", "changeset", "timestamp"}
	WayTagsFields  = []string{"id", "key", "value", "type"}
	WayNodesFields = []string{"id", "node_id", "position"}
)

// RegularTagType is the type of tags without a namespace prefix.
const RegularTagType = "regular"

type NodeRecord struct {
	ID        int64
	Lat       float64
	Lon       float64
	User      string
	UID       int64
	Version   int64
	Changeset int64
	Timestamp string
}

func (n *NodeRecord) Fields() map[string]interface{} {
	return map[string]interface{}{
		"id":        n.ID,
		"lat":       n.Lat,
		"lon":       n.Lon,
		"user":      n.User,
		"uid":       n.UID,
		"version":   n.Version,
		"changeset": n.Changeset,
		"timestamp": n.Timestamp,
	}
}

func (n *NodeRecord) Row() []string {
	return []string{
		formatInt(n.ID),
		formatFloat(n.Lat),
		formatFloat(n.Lon),
		n.User,
		formatInt(n.UID),
		formatInt(n.Version),
		formatInt(n.Changeset),
		n.Timestamp,
	}
}

type WayRecord struct {
	ID        int64
	User      string
	UID       int64
	Version   int64
	Changeset int64
	Timestamp string
}

func (w *WayRecord) Fields() map[string]interface{} {
	return map[string]interface{}{
		"id":        w.ID,
		"user":      w.User,
		"uid":       w.UID,
		"version":   w.Version,
		"changeset": w.Changeset,
		"timestamp": w.Timestamp,
	}
}

func (w *WayRecord) Row() []string {
	return []string{
		formatInt(w.ID),
		w.User,
		formatInt(w.UID),
		formatInt(w.Version),
		formatInt(w.Changeset),
		w.Timestamp,
	}
}

// TagRecord is a normalized tag of a node or way. Type is the namespace
// prefix of the original key (text before the first colon) or
// RegularTagType, Key is the remainder.
type TagRecord struct {
	ID    int64
	Key   string
	Value string
	Type  string
}

func (t *TagRecord) Fields() map[string]interface{} {
	return map[string]interface{}{
		"id":    t.ID,
		"key":   t.Key,
		"value": t.Value,
		"type":  t.Type,
	}
}

func (t *TagRecord) Row() []string {
	return []string{formatInt(t.ID), t.Key, t.Value, t.Type}
}

// WayNodeRecord references the node at Position (zero-based) of way ID.
type WayNodeRecord struct {
	ID       int64
	NodeID   int64
	Position int64
}

func (wn *WayNodeRecord) Fields() map[string]interface{} {
	return map[string]interface{}{
		"id":       wn.ID,
		"node_id":  wn.NodeID,
		"position": wn.Position,
	}
}

func (wn *WayNodeRecord) Row() []string {
	return []string{formatInt(wn.ID), formatInt(wn.NodeID), formatInt(wn.Position)}
}

// Shaped is the result of shaping one RawElement. Either Node or Way is set,
// depending on Kind.
type Shaped struct {
	Kind     Kind
	Node     *NodeRecord
	NodeTags []TagRecord
	Way      *WayRecord
	WayNodes []WayNodeRecord
	WayTags  []TagRecord
}

// Group names of a shaped element, as used by schema validation.
const (
	NodeGroup     = "node"
	NodeTagsGroup = "node_tags"
	WayGroup      = "way"
	WayNodesGroup = "way_nodes"
	WayTagsGroup  = "way_tags"
)

// Document returns the shaped element as a generic document with one entry
// per field group. Single records are maps, record lists are slices of maps.
// A missing record is a nil entry.
func (s *Shaped) Document() map[string]interface{} {
	doc := make(map[string]interface{})
	switch s.Kind {
	case NodeKind:
		doc[NodeGroup] = nil
		if s.Node != nil {
			doc[NodeGroup] = s.Node.Fields()
		}
		doc[NodeTagsGroup] = tagDocs(s.NodeTags)
	case WayKind:
		doc[WayGroup] = nil
		if s.Way != nil {
			doc[WayGroup] = s.Way.Fields()
		}
		wayNodes := make([]map[string]interface{}, 0, len(s.WayNodes))
		for i := range s.WayNodes {
			wayNodes = append(wayNodes, s.WayNodes[i].Fields())
		}
		doc[WayNodesGroup] = wayNodes
		doc[WayTagsGroup] = tagDocs(s.WayTags)
	}
	return doc
}

func tagDocs(tags []TagRecord) []map[string]interface{} {
	docs := make([]map[string]interface{}, 0, len(tags))
	for i := range tags {
		docs = append(docs, tags[i].Fields())
	}
	return docs
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
