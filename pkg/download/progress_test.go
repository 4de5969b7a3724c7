package download

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		done, total, want int64
	}{
		{0, 0, 0},
		{10, -1, 0},
		{1, 3, 33},
		{2, 3, 66},
		{3644, 3644, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.done, tt.total), "%d/%d", tt.done, tt.total)
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)

	p.Done()
	assert.Empty(t, buf.String(), "no newline without a progress line")

	p.Update(2048, 4096)
	p.Update(4096, 4096)
	p.Done()
	assert.Equal(t, "  -> Progress: 2/4 kiB (50%)\r  -> Progress: 4/4 kiB (100%)\r\n", buf.String())

	buf.Reset()
	p.Update(1536, -1)
	assert.Equal(t, "  -> Progress: 1/0 kiB (0%)\r", buf.String())
}
