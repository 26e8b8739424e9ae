// internal/pkg/database/pagination.go
package database

import "gorm.io/gorm"

// Page is a normalized page request
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination describes a page of results
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NormalizePage clamps page to >= 1 and limit to [1, maxLimit], using defaultLimit when unset
func NormalizePage(page, limit, defaultLimit, maxLimit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Page{Page: page, Limit: limit}
}

// Scope applies offset and limit
func (p Page) Scope(db *gorm.DB) *gorm.DB {
	return db.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
}

// Describe builds the pagination block for a total row count
func (p Page) Describe(total int64) Pagination {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
