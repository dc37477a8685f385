package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osmcsv/element"
	"github.com/omniscale/osmcsv/fields"
)

func readRows(t *testing.T, fname string) [][]string {
	t.Helper()
	f, err := os.Open(fname)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "csv")
	w, err := Open(dir, Names{})
	require.NoError(t, err)

	node := &element.Shaped{
		Kind: element.NodeKind,
		Node: &element.NodeRecord{ID: 1, Lat: 43.6532, Lon: -79.3832, User: "O'Brien, \"Bob\"", UID: 7, Version: 2, Changeset: 3, Timestamp: "2016-01-01T00:00:00Z"},
		NodeTags: []element.TagRecord{
			{ID: 1, Key: "name", Value: "Line\nbreak", Type: "regular"},
			{ID: 1, Key: "postcode", Value: "M4B1B3", Type: "addr"},
		},
	}
	way := &element.Shaped{
		Kind:     element.WayKind,
		Way:      &element.WayRecord{ID: 10, User: "alice", UID: 8, Version: 1, Changeset: 4, Timestamp: "2016-01-02T00:00:00Z"},
		WayNodes: []element.WayNodeRecord{{ID: 10, NodeID: 1, Position: 0}, {ID: 10, NodeID: 2, Position: 1}},
	}
	require.NoError(t, w.Write(node))
	require.NoError(t, w.Write(way))
	require.NoError(t, w.Close())

	rows := readRows(t, filepath.Join(dir, "nodes.csv"))
	require.Len(t, rows, 1)
	raw := fields.Raw{}
	for i, name := range element.NodeFields {
		raw[name] = fields.Str(rows[0][i])
	}
	v, err := fields.Convert(raw)
	require.NoError(t, err)
	assert.Equal(t, node.Node.Fields(), map[string]interface{}(v))

	rows = readRows(t, filepath.Join(dir, "nodes_tags.csv"))
	assert.Equal(t, [][]string{
		{"1", "name", "Line\nbreak", "regular"},
		{"1", "postcode", "M4B1B3", "addr"},
	}, rows)

	rows = readRows(t, filepath.Join(dir, "ways.csv"))
	assert.Equal(t, [][]string{{"10", "alice", "8", "1", "4", "2016-01-02T00:00:00Z"}}, rows)

	rows = readRows(t, filepath.Join(dir, "ways_nodes.csv"))
	assert.Equal(t, [][]string{{"10", "1", "0"}, {"10", "2", "1"}}, rows)

	rows = readRows(t, filepath.Join(dir, "ways_tags.csv"))
	assert.Empty(t, rows)
}

func TestWriteUnsupportedKind(t *testing.T) {
	w, err := Open(t.TempDir(), DefaultNames)
	require.NoError(t, err)
	defer w.Close()
	assert.Error(t, w.Write(&element.Shaped{Kind: element.RelationKind}))
}

func TestNames(t *testing.T) {
	n := Names{Nodes: "n.csv"}.WithDefaults()
	assert.Equal(t, "n.csv", n.Nodes)
	assert.Equal(t, "ways_tags.csv", n.WayTags)

	tables := n.Tables()
	require.Len(t, tables, 5)
	assert.Equal(t, "nodes", tables[0].Name)
	assert.Equal(t, "n.csv", tables[0].File)
	assert.Equal(t, element.WayNodesFields, tables[3].Fields)
}

func TestOpenFails(t *testing.T) {
	dir := t.TempDir()
	// file in place of the output dir
	fname := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(fname, nil, 0644))
	_, err := Open(fname, DefaultNames)
	assert.Error(t, err)
}
