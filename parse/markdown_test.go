package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "link with title",
			input: `see [foo](https://x.test "Foo")`,
			want: `{"version":1,"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"text","text":"see "},
				{"type":"text","text":"foo","marks":[{"type":"link","attrs":{"href":"https://x.test","title":"Foo"}}]}]}]}`,
		},
		{
			name:  "formatting",
			input: "**bold** _em_ ~~gone~~ `code`",
			want: `{"version":1,"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"text","text":"bold","marks":[{"type":"strong"}]},
				{"type":"text","text":" "},
				{"type":"text","text":"em","marks":[{"type":"em"}]},
				{"type":"text","text":" "},
				{"type":"text","text":"gone","marks":[{"type":"strike"}]},
				{"type":"text","text":" "},
				{"type":"text","text":"code","marks":[{"type":"code"}]}]}]}`,
		},
		{
			name:  "bold link text",
			input: `[**Buy**](/cart)`,
			want: `{"version":1,"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"text","text":"Buy","marks":[{"type":"link","attrs":{"href":"/cart"}},{"type":"strong"}]}]}]}`,
		},
		{
			name:  "autolink",
			input: `<https://auto.test>`,
			want: `{"version":1,"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"text","text":"https://auto.test","marks":[{"type":"link","attrs":{"href":"https://auto.test"}}]}]}]}`,
		},
		{
			name:  "soft break joins lines",
			input: "one\ntwo",
			want:  `{"version":1,"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"one two"}]}]}`,
		},
		{
			name:  "blocks",
			input: "## Title\n\n> quoted\n\n---\n",
			want: `{"version":1,"type":"doc","content":[
				{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Title"}]},
				{"type":"blockquote","content":[{"type":"paragraph","content":[{"type":"text","text":"quoted"}]}]},
				{"type":"rule"}]}`,
		},
		{
			name:  "fenced code",
			input: "```go\nx := 1\n```\n",
			want: `{"version":1,"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"text","text":"x := 1","marks":[{"type":"code"}]}]}]}`,
		},
		{
			name:  "html block with a template element",
			input: "<p><button link-target=\"#\">Buy</button></p>\n\nafter\n",
			want: `{"version":1,"type":"doc","content":[
				{"type":"paragraph","content":[{"type":"button","attrs":{"link-target":"#"},"content":[{"type":"text","text":"Buy"}]}]},
				{"type":"paragraph","content":[{"type":"text","text":"after"}]}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Markdown([]byte(tt.input))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, docJSON(t, doc))
		})
	}
}

func TestMarkdownImageKeepsAltText(t *testing.T) {
	doc, err := Markdown([]byte(`![a cat](cat.png) and ![](empty.png)`))
	require.NoError(t, err)
	require.Len(t, doc.Content, 1)
	require.Len(t, doc.Content[0].Content, 1)
	assert.Equal(t, "a cat and ", doc.Content[0].Content[0].Text)
}
