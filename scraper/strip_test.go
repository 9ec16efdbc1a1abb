package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text",
			input: "hello   world",
			want:  "hello world",
		},
		{
			name:  "tags removed",
			input: "<html><body><h1>Report</h1><p>C2 at <b>203.0.113.7</b></p></body></html>",
			want:  "Report C2 at 203.0.113.7",
		},
		{
			name:  "script and style dropped with content",
			input: `<head><style type="text/css">body { color: red }</style><script>var ip = "10.0.0.1";</script></head><p>visible</p>`,
			want:  "visible",
		},
		{
			name:  "mixed case script tag",
			input: "<SCRIPT src=x>alert('x')</SCRIPT>after",
			want:  "after",
		},
		{
			name:  "script text survives outside script",
			input: "<script>a</script><p>before</p><style>b</style><p>after</p>",
			want:  "before after",
		},
		{
			name:  "comments dropped",
			input: "<!-- hidden 1.1.1.1 --><div>shown</div>",
			want:  "shown",
		},
		{
			name:  "entities decoded",
			input: "<p>evil&#46;test &amp; bad.test</p>",
			want:  "evil.test & bad.test",
		},
		{
			name:  "whitespace collapsed across lines",
			input: "<div>\n\tline one\n\n</div>\n<div>  line two </div>",
			want:  "line one line two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripHTML(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripHTML_LargeDocument(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 2000; i++ {
		b.WriteString("<p>paragraph</p><script>x()</script>")
	}

	got, err := StripHTML(b.String())
	require.NoError(t, err)
	assert.NotContains(t, got, "x()")
	assert.Equal(t, 2000, strings.Count(got, "paragraph"))
}
