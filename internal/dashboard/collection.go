package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// pageData is what a collection fetch produces after projection to rows.
type pageData struct {
	Rows       []Row
	Total      int
	TotalPages int
	PerPage    int
}

// FetchFunc loads one page of a collection from the API and projects it to
// view rows.
type FetchFunc func(ctx context.Context, page, perPage int) (*pageData, error)

// Collection keeps the client-side pagination state for one named resource
// and renders fetched pages into its view region. Loads are fenced with a
// sequence counter: when the operator pages quickly, responses that arrive
// after a newer request was issued are dropped instead of clobbering the UI.
type Collection struct {
	name  string
	view  View
	fetch FetchFunc

	mu      sync.Mutex
	seq     uint64
	page    int
	perPage int
}

// NewCollection creates a collection with page size perPage, positioned on
// page 1.
func NewCollection(name string, view View, perPage int, fetch FetchFunc) *Collection {
	return &Collection{
		name:    name,
		view:    view,
		fetch:   fetch,
		page:    1,
		perPage: perPage,
	}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Page returns the current page.
func (c *Collection) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Reset moves the collection back to page 1 without loading.
func (c *Collection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = 1
}

// Load fetches and renders one page. A load error leaves the previously
// rendered rows in place and surfaces the failure on the status banner.
func (c *Collection) Load(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	perPage := c.perPage
	c.mu.Unlock()

	data, err := c.fetch(ctx, page, perPage)

	c.mu.Lock()
	if seq != c.seq {
		// A newer load was issued while this one was in flight.
		c.mu.Unlock()
		logrus.Debugf("Dropping stale %s response for page %d", c.name, page)
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		logrus.Errorf("Failed to load %s page %d: %v", c.name, page, err)
		c.view.SetStatus(fmt.Sprintf("Nie udało się wczytać danych (%s)", c.name))
		return err
	}
	c.page = page
	c.mu.Unlock()

	c.view.SetStatus("")
	c.view.RenderRows(c.name, data.Rows)
	c.view.RenderCaption(c.name, caption(page, data.PerPage, data.Total))
	c.view.RenderPagination(c.name, BuildPagination(page, data.TotalPages))
	return nil
}

// Reload fetches the current page again.
func (c *Collection) Reload(ctx context.Context) error {
	return c.Load(ctx, c.Page())
}

// caption builds the "showing X-Y of Z" line.
func caption(page, perPage, total int) string {
	from := 0
	to := 0
	if total > 0 {
		from = (page-1)*perPage + 1
		to = page * perPage
		if to > total {
			to = total
		}
		if from > total {
			from = 0
			to = 0
		}
	}
	return fmt.Sprintf("Wyświetlam %d-%d z %d", from, to, total)
}
