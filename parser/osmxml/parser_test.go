package osmxml

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osmcsv/element"
)

const testOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
 <bounds minlat="43.6" minlon="-79.5" maxlat="43.7" maxlon="-79.3"/>
 <node id="1" lat="43.65" lon="-79.38" user="alice" uid="42" version="2" changeset="100" timestamp="2016-01-01T00:00:00Z">
  <tag k="addr:postcode" v="m4b 1b3"/>
  <tag k="name" v="Cafe"/>
 </node>
 <node id="2" lat="43.66" lon="-79.39" user="bob" uid="43" version="1" changeset="101" timestamp="2016-01-02T00:00:00Z"/>
 <way id="10" user="alice" uid="42" version="1" changeset="102" timestamp="2016-01-03T00:00:00Z">
  <nd ref="2"/>
  <nd ref="1"/>
  <nd ref="2"/>
  <tag k="highway" v="residential"/>
 </way>
 <relation id="100" user="alice" uid="42" version="1" changeset="103" timestamp="2016-01-04T00:00:00Z">
  <member type="way" ref="10" role="outer"/>
  <tag k="type" v="multipolygon"/>
 </relation>
 <node id="3" lat="43.67" lon="-79.40"/>
</osm>
`

func parseAll(t *testing.T, p *Parser, elems chan *element.RawElement) ([]*element.RawElement, error) {
	t.Helper()
	errc := make(chan error, 1)
	go func() {
		errc <- p.Parse(context.Background())
	}()
	var result []*element.RawElement
	for e := range elems {
		result = append(result, e)
	}
	return result, <-errc
}

func TestParse(t *testing.T) {
	elems := make(chan *element.RawElement)
	p := New(strings.NewReader(testOSM), Config{Elements: elems})

	result, err := parseAll(t, p, elems)
	require.NoError(t, err)
	require.Len(t, result, 5)

	n := result[0]
	assert.Equal(t, element.NodeKind, n.Kind)
	assert.Equal(t, "1", n.Attrs["id"])
	assert.Equal(t, "43.65", n.Attrs["lat"])
	assert.Equal(t, "alice", n.Attrs["user"])
	assert.Equal(t, []element.Tag{{Key: "addr:postcode", Value: "m4b 1b3"}, {Key: "name", Value: "Cafe"}}, n.Tags)
	assert.Empty(t, n.Refs)

	assert.Equal(t, "2", result[1].Attrs["id"])
	assert.Empty(t, result[1].Tags)

	w := result[2]
	assert.Equal(t, element.WayKind, w.Kind)
	assert.Equal(t, []element.NodeRef{{Ref: "2"}, {Ref: "1"}, {Ref: "2"}}, w.Refs)
	assert.Equal(t, []element.Tag{{Key: "highway", Value: "residential"}}, w.Tags)

	r := result[3]
	assert.Equal(t, element.RelationKind, r.Kind)
	assert.Equal(t, "100", r.Attrs["id"])
	assert.Empty(t, r.Tags)

	last := result[4]
	assert.Equal(t, "3", last.Attrs["id"])
	_, ok := last.Attrs["uid"]
	assert.False(t, ok)
}

func TestParseGZIP(t *testing.T) {
	buf := &bytes.Buffer{}
	zw := gzip.NewWriter(buf)
	_, err := zw.Write([]byte(testOSM))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	elems := make(chan *element.RawElement)
	p, err := NewGZIP(buf, Config{Elements: elems})
	require.NoError(t, err)

	result, err := parseAll(t, p, elems)
	require.NoError(t, err)
	assert.Len(t, result, 5)
}

func TestParseBZIP2(t *testing.T) {
	f, err := os.Open("testdata/small.osm.bz2")
	require.NoError(t, err)
	defer f.Close()

	elems := make(chan *element.RawElement)
	result, err := parseAll(t, NewBZIP2(f, Config{Elements: elems}), elems)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, []element.Tag{{Key: "addr:street", Value: "123 Main St"}}, result[0].Tags)
	assert.Equal(t, element.WayKind, result[2].Kind)
	assert.Equal(t, []element.NodeRef{{Ref: "1"}, {Ref: "2"}}, result[2].Refs)
}

func TestParseLatin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<osm><node id=\"1\" lat=\"1\" lon=\"2\"><tag k=\"name\" v=\"Caf\xe9 M\xfcller\"/></node></osm>"

	elems := make(chan *element.RawElement)
	result, err := parseAll(t, New(strings.NewReader(doc), Config{Elements: elems}), elems)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, []element.Tag{{Key: "name", Value: "Café Müller"}}, result[0].Tags)
}

func TestParseUnknownCharset(t *testing.T) {
	doc := `<?xml version="1.0" encoding="X-NO-SUCH-CHARSET"?><osm><node id="1"/></osm>`

	elems := make(chan *element.RawElement)
	result, err := parseAll(t, New(strings.NewReader(doc), Config{Elements: elems}), elems)
	assert.Error(t, err)
	assert.Empty(t, result)
}

func TestParseInvalidXML(t *testing.T) {
	elems := make(chan *element.RawElement)
	p := New(strings.NewReader(`<osm><node id="1"></way></osm>`), Config{Elements: elems})

	_, err := parseAll(t, p, elems)
	require.Error(t, err)
	assert.Equal(t, err, p.Error())

	// parser can't be restarted
	assert.Equal(t, err, p.Parse(context.Background()))
}

func TestParseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	elems := make(chan *element.RawElement)
	p := New(strings.NewReader(testOSM), Config{Elements: elems})
	err := p.Parse(ctx)
	assert.Equal(t, context.Canceled, err)
	_, open := <-elems
	assert.False(t, open)
}
