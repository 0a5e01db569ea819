package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticFetch(pages map[int]*pageData) FetchFunc {
	return func(ctx context.Context, page, perPage int) (*pageData, error) {
		data, ok := pages[page]
		if !ok {
			return &pageData{PerPage: perPage}, nil
		}
		return data, nil
	}
}

func TestCollection_LoadRendersPage(t *testing.T) {
	view := newFakeView()
	c := NewCollection(CollectionLeads, view, 20, staticFetch(map[int]*pageData{
		1: {
			Rows:       []Row{{ID: "p1"}, {ID: "p2"}},
			Total:      42,
			TotalPages: 3,
			PerPage:    20,
		},
	}))

	require.NoError(t, c.Load(context.Background(), 1))

	assert.Len(t, view.lastRows(CollectionLeads), 2)
	assert.Equal(t, "Wyświetlam 1-20 z 42", view.lastCaption(CollectionLeads))
	assert.Equal(t, 1, c.Page())
	assert.Equal(t, "", view.lastStatus(), "a successful load clears the status banner")
}

func TestCollection_LoadIsIdempotent(t *testing.T) {
	view := newFakeView()
	c := NewCollection(CollectionLeads, view, 20, staticFetch(map[int]*pageData{
		1: {Rows: []Row{{ID: "p1"}}, Total: 1, TotalPages: 1, PerPage: 20},
	}))

	require.NoError(t, c.Load(context.Background(), 1))
	require.NoError(t, c.Load(context.Background(), 1))

	assert.Equal(t, 2, view.renderCount(CollectionLeads))
	assert.Equal(t, "Wyświetlam 1-1 z 1", view.lastCaption(CollectionLeads))
	assert.Equal(t, 1, c.Page())
}

func TestCollection_EmptyPageBeyondData(t *testing.T) {
	view := newFakeView()
	c := NewCollection(CollectionMessages, view, 20, staticFetch(map[int]*pageData{
		2: {Rows: nil, Total: 0, TotalPages: 0, PerPage: 20},
	}))

	require.NoError(t, c.Load(context.Background(), 2))

	assert.Empty(t, view.lastRows(CollectionMessages))
	assert.Equal(t, "Wyświetlam 0-0 z 0", view.lastCaption(CollectionMessages))

	links := view.pagination[CollectionMessages][0]
	require.Len(t, links, 1)
	assert.True(t, links[0].Disabled)
}

func TestCollection_PartialLastPageCaption(t *testing.T) {
	view := newFakeView()
	c := NewCollection(CollectionLeads, view, 20, staticFetch(map[int]*pageData{
		3: {Rows: []Row{{ID: "p41"}}, Total: 41, TotalPages: 3, PerPage: 20},
	}))

	require.NoError(t, c.Load(context.Background(), 3))

	assert.Equal(t, "Wyświetlam 41-41 z 41", view.lastCaption(CollectionLeads))
}

func TestCollection_FetchErrorKeepsPreviousRows(t *testing.T) {
	view := newFakeView()
	calls := 0
	c := NewCollection(CollectionLeads, view, 20, func(ctx context.Context, page, perPage int) (*pageData, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("connection refused")
		}
		return &pageData{Rows: []Row{{ID: "p1"}}, Total: 1, TotalPages: 1, PerPage: 20}, nil
	})

	require.NoError(t, c.Load(context.Background(), 1))
	err := c.Load(context.Background(), 2)

	require.Error(t, err)
	assert.Equal(t, 1, view.renderCount(CollectionLeads), "failed loads must not clobber rendered rows")
	assert.Contains(t, view.lastStatus(), "Nie udało się wczytać danych")
	assert.Equal(t, 1, c.Page(), "a failed load must not advance the page")
}

func TestCollection_StaleResponseDropped(t *testing.T) {
	view := newFakeView()

	release := make(chan struct{})
	started := make(chan struct{})
	c := NewCollection(CollectionLeads, view, 20, func(ctx context.Context, page, perPage int) (*pageData, error) {
		if page == 2 {
			close(started)
			<-release
		}
		return &pageData{
			Rows:       []Row{{ID: "page" + string(rune('0'+page))}},
			Total:      100,
			TotalPages: 5,
			PerPage:    20,
		}, nil
	})

	slowDone := make(chan error, 1)
	go func() {
		slowDone <- c.Load(context.Background(), 2)
	}()
	<-started

	// A newer request supersedes the in-flight one.
	require.NoError(t, c.Load(context.Background(), 3))
	close(release)
	require.NoError(t, <-slowDone)

	assert.Equal(t, 1, view.renderCount(CollectionLeads), "the stale response must not render")
	assert.Equal(t, "page3", view.lastRows(CollectionLeads)[0].ID)
	assert.Equal(t, 3, c.Page())
}

func TestCollection_ResetReturnsToPageOne(t *testing.T) {
	view := newFakeView()
	c := NewCollection(CollectionGroups, view, 20, staticFetch(map[int]*pageData{
		4: {Rows: []Row{{ID: "g"}}, Total: 80, TotalPages: 4, PerPage: 20},
	}))

	require.NoError(t, c.Load(context.Background(), 4))
	c.Reset()

	assert.Equal(t, 1, c.Page())
}
