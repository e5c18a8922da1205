package htmltext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text passthrough", "Hello   world\n\nagain", "Hello world again"},
		{"tags removed", "<p>Hello <b>world</b></p>", "Hello world"},
		{"script and style dropped", "<html><head><style>p{color:red}</style></head><body><script>var x=1;</script><p>News</p></body></html>", "News"},
		{"blocks separated", "<div>One</div><div>Two</div>", "One Two"},
		{"entities decoded", "<p>Q&amp;A &lt;live&gt;</p>", "Q&A <live>"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Strip(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestExtract(t *testing.T) {
	body := `<html><head><title>Weekly AI</title></head><body><h1>Top stories</h1><p>` +
		strings.Repeat("Model releases and benchmarks. ", 20) + `</p></body></html>`

	doc, err := Extract(body)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Text, "Top stories Model releases"))
	assert.NotContains(t, doc.Text, "<")
	assert.LessOrEqual(t, len([]rune(doc.Excerpt)), 280)
}
