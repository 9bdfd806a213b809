package domain

// DefaultPageSize is the page size when none is specified.
const DefaultPageSize = 100

// MaxPageSize is the maximum allowed page size.
const MaxPageSize = 1000

// PageRequest holds offset pagination parameters for list operations and
// result windows.
type PageRequest struct {
	Offset int
	Size   int
}

// Start returns the effective offset, clamped at zero.
func (p PageRequest) Start() int {
	if p.Offset < 0 {
		return 0
	}
	return p.Offset
}

// Limit returns the effective page size, clamped to [1, MaxPageSize].
func (p PageRequest) Limit() int {
	if p.Size <= 0 {
		return DefaultPageSize
	}
	if p.Size > MaxPageSize {
		return MaxPageSize
	}
	return p.Size
}

// HasMore reports whether another page exists after this one given the
// total row count.
func (p PageRequest) HasMore(total int64) bool {
	return int64(p.Start()+p.Limit()) < total
}
