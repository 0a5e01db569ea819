package dashboard

import "strconv"

// PageLink is one element of the pagination control. Links are a pure
// view-model; the front end decides how to draw and wire them.
type PageLink struct {
	Page     int
	Label    string
	Active   bool
	Disabled bool
	Ellipsis bool
}

// maxNumbered is the widest run of numbered links the control shows.
const maxNumbered = 5

// BuildPagination renders (page, totalPages) into a bounded control: a
// previous link, at most five numbered links centered on the current page,
// ellipsis markers when the window does not touch an edge, and a next link.
// The window is clamped to [1, totalPages] and widened on the opposite side
// when clamped, so exactly min(5, totalPages) numbers show whenever possible.
func BuildPagination(page, totalPages int) []PageLink {
	if totalPages <= 0 {
		return []PageLink{{Label: "-", Disabled: true}}
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	width := maxNumbered
	if totalPages < width {
		width = totalPages
	}

	start := page - width/2
	if start < 1 {
		start = 1
	}
	end := start + width - 1
	if end > totalPages {
		end = totalPages
		start = end - width + 1
	}

	links := []PageLink{{
		Page:     page - 1,
		Label:    "«",
		Disabled: page == 1,
	}}

	if start > 1 {
		links = append(links, PageLink{Ellipsis: true, Label: "…", Disabled: true})
	}

	for p := start; p <= end; p++ {
		links = append(links, PageLink{
			Page:   p,
			Label:  strconv.Itoa(p),
			Active: p == page,
		})
	}

	if end < totalPages {
		links = append(links, PageLink{Ellipsis: true, Label: "…", Disabled: true})
	}

	links = append(links, PageLink{
		Page:     page + 1,
		Label:    "»",
		Disabled: page == totalPages,
	})

	return links
}
