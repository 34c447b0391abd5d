package contentscript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopPage = `<!DOCTYPE html>
<html>
<head>
  <title> Blue Kettle | Shop </title>
  <meta name="description" content="A kettle that is blue.">
  <meta property="og:type" content="Product">
  <script type="application/ld+json">{"@type":"Product","name":"Kettle"}</script>
  <style>.x{color:red}</style>
</head>
<body>
  <h1>Blue   Kettle</h1>
  <p>Only $24.99 today, was $30.</p>
  <form role="search"><input type="search" name="q"></form>
  <button>Add to cart</button>
  <a href="/a">A</a><a>no href</a><a href="/b">B</a>
  <!-- hidden comment words -->
  <script>var ignored = "text";</script>
</body>
</html>`

func TestExtract(t *testing.T) {
	e, err := Extract(shopPage, 0)
	require.NoError(t, err)

	assert.Equal(t, "Blue Kettle | Shop", e.Title)
	assert.Equal(t, "A kettle that is blue.", e.Description)
	assert.Equal(t, "product", e.OGType)
	assert.Equal(t, []string{"Blue Kettle"}, e.Headings)
	assert.Equal(t, 2, e.Links)
	assert.Equal(t, 1, e.Forms)
	assert.Equal(t, 2, e.SearchInputs)
	assert.Equal(t, 2, e.PriceMentions)
	assert.Equal(t, 1, e.CartButtons)
	assert.True(t, e.ProductSchema)
	assert.False(t, e.Truncated)

	assert.NotContains(t, e.Text, "ignored")
	assert.NotContains(t, e.Text, "hidden comment")
	assert.NotContains(t, e.Text, "color:red")
	assert.NotContains(t, e.Text, "Shop")
	assert.Contains(t, e.Text, "Only $24.99 today")
	assert.Equal(t, len(strings.Fields(e.Text)), e.WordCount)
}

func TestExtract_Signals(t *testing.T) {
	tests := []struct {
		name  string
		html  string
		check func(t *testing.T, e *Extraction)
	}{
		{
			name: "article and feed regions",
			html: `<main><article><h2>One</h2></article><div role="feed"></div></main>`,
			check: func(t *testing.T, e *Extraction) {
				assert.Equal(t, 1, e.ArticleTags)
				assert.Equal(t, 1, e.FeedRegions)
				assert.Equal(t, []string{"One"}, e.Headings)
			},
		},
		{
			name: "microdata product",
			html: `<div itemscope itemtype="https://schema.org/Product"><span>Lamp</span></div>`,
			check: func(t *testing.T, e *Extraction) {
				assert.True(t, e.ProductSchema)
			},
		},
		{
			name: "empty document",
			html: ``,
			check: func(t *testing.T, e *Extraction) {
				assert.Empty(t, e.Title)
				assert.Zero(t, e.WordCount)
				assert.Empty(t, e.Text)
				assert.Nil(t, e.Headings)
			},
		},
		{
			name: "empty headings are ignored",
			html: `<h1>  </h1><h3>Kept</h3><h4>Too deep</h4>`,
			check: func(t *testing.T, e *Extraction) {
				assert.Equal(t, []string{"Kept"}, e.Headings)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Extract(tt.html, 0)
			require.NoError(t, err)
			tt.check(t, e)
		})
	}
}

func TestExtract_Truncates(t *testing.T) {
	body := "<p>" + strings.Repeat("word ", 100) + "</p>"
	e, err := Extract(body, 20)
	require.NoError(t, err)

	assert.True(t, e.Truncated)
	assert.Equal(t, "word word word word ...", e.Text)
	assert.Equal(t, 100, e.WordCount)
}

func TestTruncate_RuneBoundary(t *testing.T) {
	out, cut := truncate("héllo", 2)
	assert.True(t, cut)
	assert.Equal(t, "h...", out)

	out, cut = truncate("short", 10)
	assert.False(t, cut)
	assert.Equal(t, "short", out)
}
