package sorting

// Page is one window of a paginated table. Start and End index the sorted
// slice; Number is 1-based.
type Page struct {
	Number int `json:"page"`
	Size   int `json:"size"`
	Pages  int `json:"pages"`
	Total  int `json:"total"`
	Start  int `json:"-"`
	End    int `json:"-"`
}

// Paginate clamps page into range. A size of zero or less puts every row on
// one page.
func Paginate(total, page, size int) Page {
	if total < 0 {
		total = 0
	}
	if size <= 0 {
		size = max(total, 1)
	}
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	page = min(max(page, 1), pages)
	start := min((page-1)*size, total)
	return Page{
		Number: page,
		Size:   size,
		Pages:  pages,
		Total:  total,
		Start:  start,
		End:    min(start+size, total),
	}
}

// Slice returns the rows of items that fall on p.
func Slice[T any](items []T, p Page) []T {
	if p.Start >= len(items) {
		return items[:0]
	}
	return items[p.Start:min(p.End, len(items))]
}
