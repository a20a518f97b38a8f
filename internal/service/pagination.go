// internal/service/pagination.go
package service

// Pagination is the page metadata block attached to every list response.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// clampPage normalizes page/page_size: page floors at 1, page_size floors at
// 1 and caps at max, zero page_size falls back to def.
func clampPage(page, pageSize, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = def
	}
	if pageSize > max {
		pageSize = max
	}
	return page, pageSize
}

// paginate builds the metadata block. Total pages is ceiling division.
func paginate(page, pageSize, total int) Pagination {
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}
