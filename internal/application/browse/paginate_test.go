package browse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(21, 20))
	assert.Equal(t, 2, TotalPages(25, 20))
	assert.Equal(t, 3, TotalPages(25, 10))
	assert.Equal(t, 2, TotalPages(25, 0))
}

func TestPaginate_TwentyFiveAtTwenty(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i + 1
	}
	page, p := Paginate(items, 1, 20)
	assert.Len(t, page, 20)
	assert.Equal(t, 2, p.TotalPages)
	assert.Equal(t, 1, p.StartIndex)
	assert.Equal(t, 20, p.EndIndex)
	assert.True(t, p.HasNext)
	assert.False(t, p.HasPrevious)

	page, p = Paginate(items, 2, 20)
	assert.Equal(t, []int{21, 22, 23, 24, 25}, page)
	assert.Equal(t, 21, p.StartIndex)
	assert.Equal(t, 25, p.EndIndex)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrevious)
}

func TestPaginate_ClampsPage(t *testing.T) {
	items := make([]int, 25)
	_, p := Paginate(items, 99, 20)
	assert.Equal(t, 2, p.CurrentPage)
	_, p = Paginate(items, -3, 20)
	assert.Equal(t, 1, p.CurrentPage)
}

func TestPaginate_Empty(t *testing.T) {
	page, p := Paginate([]int{}, 3, 20)
	assert.Empty(t, page)
	assert.NotNil(t, page)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, 0, p.StartIndex)
	assert.Equal(t, 0, p.EndIndex)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrevious)
}

func TestPageNumbers(t *testing.T) {
	assert.Equal(t, []int{1}, PageNumbers(1, 1))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, PageNumbers(4, 7))
	assert.Equal(t, []int{1, 2, 3, Ellipsis, 10}, PageNumbers(1, 10))
	assert.Equal(t, []int{1, Ellipsis, 3, 4, 5, 6, 7, Ellipsis, 10}, PageNumbers(5, 10))
	assert.Equal(t, []int{1, Ellipsis, 8, 9, 10}, PageNumbers(10, 10))
	assert.Equal(t, []int{1, 2, 3, 4, 5, Ellipsis, 10}, PageNumbers(3, 10))
}

func TestNormalizePageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NormalizePageSize(0))
	assert.Equal(t, MaxPageSize, NormalizePageSize(1000))
	assert.Equal(t, 7, NormalizePageSize(7))
}
