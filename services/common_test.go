package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestNormalized(t *testing.T) {
	p := PageRequest{Page: 0, Size: 0}.normalized()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.Size)
	assert.Equal(t, 0, p.offset())

	p = PageRequest{Page: 3, Size: 1000}.normalized()
	assert.Equal(t, MaxPageSize, p.Size)
	assert.Equal(t, 200, p.offset())
}

func TestResolveSort(t *testing.T) {
	def := sortOrder{column: "likes", desc: true}

	assert.Equal(t, def, resolveSort("", commentSortFields, def))
	assert.Equal(t, def, resolveSort("bogus,asc", commentSortFields, def))
	assert.Equal(t, def, resolveSort("likes,sideways", commentSortFields, def))
	assert.Equal(t, sortOrder{column: "created_at", desc: false}, resolveSort("createdAt,asc", commentSortFields, def))
	assert.Equal(t, sortOrder{column: "created_at", desc: true}, resolveSort("time", commentSortFields, def))
	assert.Equal(t, sortOrder{column: "id", desc: true, idDesc: true}, resolveSort("id,desc", commentSortFields, def))
}

func TestNewPage(t *testing.T) {
	p := newPage[int](nil, PageRequest{Page: 1, Size: 10}, 21)
	assert.Equal(t, []int{}, p.Content)
	assert.Equal(t, 3, p.TotalPages)
}

func TestActorOwns(t *testing.T) {
	assert.True(t, Actor{UserID: 1}.owns(1))
	assert.False(t, Actor{UserID: 2}.owns(1))
	assert.False(t, Actor{}.owns(0))
	assert.True(t, Actor{UserID: 2, Admin: true}.owns(1))
}
