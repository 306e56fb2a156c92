package domain

// PageView es una página calculada; no se persiste.
type PageView[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
	TotalItems  int
	HasNext     bool
	HasPrevious bool
	StartIndex  int
	EndIndex    int
}

// TotalPages devuelve ceil(n/size) y nunca menos de 1.
func TotalPages(n, size int) int {
	if size < 1 {
		size = 1
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage satura page dentro de [1, total].
func ClampPage(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// Paginate corta items en la página pedida (1-based). La página se satura, nunca se rechaza.
// Items comparte backing array con el slice original: no modificar.
func Paginate[T any](items []T, page, pageSize int) PageView[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	n := len(items)
	total := TotalPages(n, pageSize)
	page = ClampPage(page, total)

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}

	return PageView[T]{
		Items:       items[start:end:end],
		CurrentPage: page,
		TotalPages:  total,
		TotalItems:  n,
		HasNext:     page < total,
		HasPrevious: page > 1,
		StartIndex:  start,
		EndIndex:    end,
	}
}
