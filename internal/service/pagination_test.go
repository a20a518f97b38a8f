package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPage(t *testing.T) {
	cases := []struct {
		name             string
		page, pageSize   int
		wantPage, wantPS int
	}{
		{"defaults", 0, 0, 1, 50},
		{"negative page floors at one", -3, 10, 1, 10},
		{"page size capped at max", 1, 500, 1, 100},
		{"page size floor falls back to default", 2, -1, 2, 50},
		{"in range untouched", 3, 25, 3, 25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, pageSize := clampPage(tc.page, tc.pageSize, 50, 100)
			assert.Equal(t, tc.wantPage, page)
			assert.Equal(t, tc.wantPS, pageSize)
		})
	}
}

func TestPaginateCeilingDivision(t *testing.T) {
	assert.Equal(t, 3, paginate(1, 10, 25).TotalPages)
	assert.Equal(t, 2, paginate(1, 10, 20).TotalPages)
	assert.Equal(t, 1, paginate(1, 10, 1).TotalPages)
	assert.Equal(t, 0, paginate(1, 10, 0).TotalPages)

	p := paginate(2, 10, 25)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 10, p.PageSize)
	assert.Equal(t, 25, p.TotalCount)
}
