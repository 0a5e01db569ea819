package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func labels(links []PageLink) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Label)
	}
	return out
}

func TestBuildPagination_NoPages(t *testing.T) {
	links := BuildPagination(1, 0)

	assert.Len(t, links, 1)
	assert.Equal(t, "-", links[0].Label)
	assert.True(t, links[0].Disabled)
}

func TestBuildPagination_SinglePage(t *testing.T) {
	links := BuildPagination(1, 1)

	assert.Equal(t, []string{"«", "1", "»"}, labels(links))
	assert.True(t, links[0].Disabled, "prev must be disabled on page 1")
	assert.True(t, links[1].Active)
	assert.True(t, links[2].Disabled, "next must be disabled on the last page")
}

func TestBuildPagination_Window(t *testing.T) {
	tests := []struct {
		name   string
		page   int
		total  int
		labels []string
	}{
		{
			name:   "first page of many shows leading window and one ellipsis",
			page:   1,
			total:  20,
			labels: []string{"«", "1", "2", "3", "4", "5", "…", "»"},
		},
		{
			name:   "middle page centers the window with ellipses on both sides",
			page:   10,
			total:  20,
			labels: []string{"«", "…", "8", "9", "10", "11", "12", "…", "»"},
		},
		{
			name:   "last page shows trailing window and one ellipsis",
			page:   20,
			total:  20,
			labels: []string{"«", "…", "16", "17", "18", "19", "20", "»"},
		},
		{
			name:   "window near the left edge is widened rightwards",
			page:   2,
			total:  20,
			labels: []string{"«", "1", "2", "3", "4", "5", "…", "»"},
		},
		{
			name:   "fewer pages than the window shows them all",
			page:   2,
			total:  4,
			labels: []string{"«", "1", "2", "3", "4", "»"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := BuildPagination(tt.page, tt.total)
			assert.Equal(t, tt.labels, labels(links))

			for _, link := range links {
				if link.Active {
					assert.Equal(t, tt.page, link.Page)
				}
			}
		})
	}
}

func TestBuildPagination_ClampsOutOfRangePage(t *testing.T) {
	links := BuildPagination(99, 10)

	assert.Equal(t, []string{"«", "…", "6", "7", "8", "9", "10", "»"}, labels(links))
	assert.True(t, links[len(links)-1].Disabled)

	links = BuildPagination(-3, 10)
	assert.Equal(t, []string{"«", "1", "2", "3", "4", "5", "…", "»"}, labels(links))
	assert.True(t, links[0].Disabled)
}

func TestBuildPagination_PrevNextTargets(t *testing.T) {
	links := BuildPagination(7, 20)

	assert.Equal(t, 6, links[0].Page, "prev points one page back")
	assert.Equal(t, 8, links[len(links)-1].Page, "next points one page forward")
	assert.False(t, links[0].Disabled)
	assert.False(t, links[len(links)-1].Disabled)
}
