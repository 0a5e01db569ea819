package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupStore_EnsureIsIdempotent(t *testing.T) {
	store := NewGroupStore(testDB(t))

	require.NoError(t, store.Ensure("g1", "bot-a"))
	require.NoError(t, store.Ensure("g1", "bot-a"))
	// The same group id under another bot is a separate row.
	require.NoError(t, store.Ensure("g1", "bot-b"))

	total, _, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestGroupStore_SetScrapeDate(t *testing.T) {
	store := NewGroupStore(testDB(t))
	require.NoError(t, store.Ensure("g1", "bot-a"))

	when := time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.SetScrapeDate("g1", "bot-a", when))

	group, err := store.Get("g1", "bot-a")
	require.NoError(t, err)
	require.NotNil(t, group.LastScrapeDate)
	assert.True(t, group.LastScrapeDate.Equal(when))

	assert.ErrorIs(t, store.SetScrapeDate("ghost", "bot-a", when), ErrNotFound)
}

func TestGroupStore_GetMissing(t *testing.T) {
	store := NewGroupStore(testDB(t))

	_, err := store.Get("ghost", "bot-a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGroupStore_RecordRunResult(t *testing.T) {
	store := NewGroupStore(testDB(t))
	require.NoError(t, store.Ensure("g1", "bot-a"))

	require.NoError(t, store.RecordRunResult("g1", "bot-a", errors.New("login wall")))

	group, err := store.Get("g1", "bot-a")
	require.NoError(t, err)
	assert.True(t, group.LastRunError)
	assert.Equal(t, "login wall", group.LastErrorMessage)
	assert.Nil(t, group.LastScrapeDate, "a failed run must not advance the scrape date")

	require.NoError(t, store.RecordRunResult("g1", "bot-a", nil))

	group, err = store.Get("g1", "bot-a")
	require.NoError(t, err)
	assert.False(t, group.LastRunError)
	assert.Empty(t, group.LastErrorMessage)
	assert.NotNil(t, group.LastScrapeDate)
}

func TestGroupStore_ListScopedAndPaged(t *testing.T) {
	store := NewGroupStore(testDB(t))
	require.NoError(t, store.Ensure("g1", "bot-a"))
	require.NoError(t, store.Ensure("g2", "bot-a"))
	require.NoError(t, store.Ensure("g3", "bot-b"))

	scoped, total, err := store.List("bot-a", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, scoped, 2)

	page2, total, err := store.List("", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page2, 1)
	assert.Equal(t, "g3", page2[0].GroupID)
}

func TestGroupStore_Counts(t *testing.T) {
	store := NewGroupStore(testDB(t))
	require.NoError(t, store.Ensure("g1", "bot-a"))
	require.NoError(t, store.Ensure("g2", "bot-a"))
	require.NoError(t, store.RecordRunResult("g1", "bot-a", errors.New("timeout")))

	total, withErrors, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, withErrors)
}
