package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogBroker(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newLogBroker(buf)

	l.Records <- Record{INFO, "reader", "reading toronto.osm"}
	l.Records <- Record{WARNING, "", "no ways"}
	l.StepStart <- Step{"process", "Converting"}
	l.StepStop <- Step{"process", "Converting"}
	l.quit <- true
	l.wg.Wait()

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatal(lines)
	}
	assert.Contains(t, out, "[reader] reading toronto.osm")
	assert.NotContains(t, out, "[info]")
	assert.Contains(t, out, "[warn] no ways")
	assert.Contains(t, out, "[process] [step] Starting: Converting")
	assert.Contains(t, out, "[process] [step] Finished: Converting in ")
	assert.Less(t, strings.Index(out, "Starting: Converting"), strings.Index(out, "Finished: Converting"))
}

func TestLogBrokerQuietProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newLogBroker(buf)
	l.quiet.Store(true)

	l.Progress <- "Nodes: 10"
	l.quit <- true
	l.wg.Wait()

	assert.NotContains(t, buf.String(), "Nodes: 10")
}
