package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDOT(t *testing.T) {
	dot := ToDOT(Plan())

	assert.True(t, strings.HasPrefix(dot, "digraph bootstrap {"))
	assert.True(t, strings.HasSuffix(dot, "}\n"))

	// Every step appears as a labeled node.
	for _, s := range Plan() {
		assert.Contains(t, dot, `"`+s.ID+`" [label=`)
	}

	// Edges run prerequisite to dependent.
	assert.Contains(t, dot, `"platform" -> "packages";`)
	assert.Contains(t, dot, `"clone" -> "branch";`)
	assert.NotContains(t, dot, `"branch" -> "clone"`)
}

func TestToDOTQuotesLabels(t *testing.T) {
	steps := []Step{{ID: "odd", Title: `say "hi"`}}
	dot := ToDOT(steps)
	assert.Contains(t, dot, `label="say \"hi\""`)
}
