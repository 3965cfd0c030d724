package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := OrderCursor{CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), ID: 42}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeCursorEmptyStartsAtNewest(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.After(time.Now()))
}

func TestDecodeCursorGarbage(t *testing.T) {
	_, err := DecodeCursor("!!not-base64!!")
	assert.Error(t, err)
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	page, size = NormalizePage(3, 500)
	assert.Equal(t, 3, page)
	assert.Equal(t, 20, size)

	page, size = NormalizePage(2, 50)
	assert.Equal(t, 2, page)
	assert.Equal(t, 50, size)
}

func TestNewOffsetPageTotalPages(t *testing.T) {
	p := newOffsetPage([]int{}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)

	p = newOffsetPage([]int{}, 40, 1, 20)
	assert.Equal(t, 2, p.TotalPages)
}
