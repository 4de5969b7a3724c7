package cli

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		limit int
		want  string
	}{
		{name: "short", title: "CMS Run2010B", limit: 20, want: "CMS Run2010B"},
		{name: "exact", title: "abcdefghij", limit: 10, want: "abcdefghij"},
		{name: "ascii", title: "abcdefghijk", limit: 10, want: "abcdefg..."},
		{name: "multibyte kept whole", title: "Ĥiggs → γγ décays ünd møre", limit: 10, want: "Ĥiggs →..."},
		{name: "multibyte at limit", title: "ααααααααα", limit: 9, want: "ααααααααα"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateTitle(tt.title, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.limit)
		})
	}
}

func TestTruncateTitle_SearchLimit(t *testing.T) {
	title := strings.Repeat("é", MaxTitleLength+5)
	got := truncateTitle(title, MaxTitleLength)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, MaxTitleLength, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}
