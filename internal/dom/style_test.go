package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStylePropertyPreservesOrder(t *testing.T) {
	e := newTestEngine(t)
	sel := e.doc.Find("#styled")

	setStyleProperty(sel, "display", "none")
	style, _ := sel.Attr("style")
	assert.Equal(t, "color: red; display: none", style)

	// Replacing an existing declaration keeps its position.
	setStyleProperty(sel, "color", "blue")
	style, _ = sel.Attr("style")
	assert.Equal(t, "color: blue; display: none", style)
}

func TestStylePropertyLookup(t *testing.T) {
	e := newTestEngine(t)
	sel := e.doc.Find("#styled")

	v, ok := styleProperty(sel, "color")
	require.True(t, ok)
	assert.Equal(t, "red", v)

	v, ok = styleProperty(sel, "COLOR")
	require.True(t, ok, "property names compare case-insensitively")
	assert.Equal(t, "red", v)

	_, ok = styleProperty(sel, "display")
	assert.False(t, ok)

	_, ok = styleProperty(e.doc.Find("#intro"), "color")
	assert.False(t, ok, "no style attribute at all")
}
