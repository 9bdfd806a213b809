package results

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queryd/internal/domain"
)

func sample() *PagedResults {
	rows := make([][]interface{}, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, []interface{}{int64(i), "row"})
	}
	return FromRows([]string{"id", "label"}, rows, "SELECT 1")
}

func TestWindow(t *testing.T) {
	p := sample()

	t.Run("first_page", func(t *testing.T) {
		page := p.Window(domain.PageRequest{Offset: 0, Size: 4})
		assert.Equal(t, 4, len(page.Rows))
		assert.Equal(t, 10, page.Total)
		assert.True(t, page.HasMore)
		assert.Equal(t, int64(0), page.Rows[0][0])
	})

	t.Run("last_partial_page", func(t *testing.T) {
		page := p.Window(domain.PageRequest{Offset: 8, Size: 4})
		assert.Equal(t, 2, len(page.Rows))
		assert.False(t, page.HasMore)
		assert.Equal(t, int64(8), page.Rows[0][0])
	})

	t.Run("offset_past_end", func(t *testing.T) {
		page := p.Window(domain.PageRequest{Offset: 50, Size: 4})
		assert.Empty(t, page.Rows)
		assert.Equal(t, 10, page.Total)
		assert.False(t, page.HasMore)
	})

	t.Run("defaults_applied", func(t *testing.T) {
		page := p.Window(domain.PageRequest{})
		assert.Equal(t, 10, len(page.Rows))
		assert.False(t, page.HasMore)
	})
}

func TestWriteCSV(t *testing.T) {
	p := FromRows(
		[]string{"id", "note"},
		[][]interface{}{{int64(1), "plain"}, {int64(2), nil}},
		"SELECT 1",
	)

	var b strings.Builder
	require.NoError(t, p.WriteCSV(&b))

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,note", lines[0])
	assert.Equal(t, "1,plain", lines[1])
	assert.Equal(t, "2,NULL", lines[2])
}
