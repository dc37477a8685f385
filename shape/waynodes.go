package shape

import (
	"strconv"

	"github.com/omniscale/osmcsv/element"
	"github.com/omniscale/osmcsv/fields"
)

// WayNodes returns one record per node reference of the way, with the
// zero-based position of the reference in document order.
func WayNodes(id *string, refs []element.NodeRef) ([]element.WayNodeRecord, error) {
	records := make([]element.WayNodeRecord, 0, len(refs))
	for i, nd := range refs {
		v, err := fields.Convert(fields.Raw{
			"id":       id,
			"node_id":  fields.Str(nd.Ref),
			"position": fields.Str(strconv.Itoa(i)),
		})
		if err != nil {
			return nil, err
		}
		records = append(records, element.WayNodeRecord{
			ID:       v.Int("id"),
			NodeID:   v.Int("node_id"),
			Position: v.Int("position"),
		})
	}
	return records, nil
}
