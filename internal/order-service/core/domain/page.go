package domain

const (
	DefaultPage  = 1
	DefaultLimit = 10
	// MaxLimit is the largest limit accepted from a query string.
	MaxLimit = 100
)

// PageRequest is a 1-based page window.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize fills defaults. The limit is never reduced, so Pages always
// matches the window the caller asked for.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	return p
}

func (p PageRequest) Skip() int64 {
	p = p.Normalize()
	return int64(p.Page-1) * int64(p.Limit)
}

// Pages is ceil(total/limit).
func Pages(total int64, limit int) int64 {
	if limit < 1 || total <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

type OrderPage struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
	Page   int     `json:"page"`
	Pages  int64   `json:"pages"`
}

type ItemPage struct {
	Items []OrderItem `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Pages int64       `json:"pages"`
}
