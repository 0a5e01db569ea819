package dashboard

import (
	"sync"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// fakeView records every call the state machine makes so tests can assert
// on what would have been drawn.
type fakeView struct {
	mu sync.Mutex

	rows        map[string][][]Row
	captions    map[string][]string
	pagination  map[string][][]PageLink
	removed     []string
	botInfo     []models.Bot
	processes   []string
	hides       int
	jobs        [][]models.Job
	actions     []bool
	connections []bool
	stats       []models.Stats
	scrapeDates map[string]string
	toasts      []string
	statuses    []string
}

func newFakeView() *fakeView {
	return &fakeView{
		rows:        make(map[string][][]Row),
		captions:    make(map[string][]string),
		pagination:  make(map[string][][]PageLink),
		scrapeDates: make(map[string]string),
	}
}

var _ View = (*fakeView)(nil)

func (v *fakeView) RenderRows(collection string, rows []Row) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows[collection] = append(v.rows[collection], rows)
}

func (v *fakeView) RenderCaption(collection string, caption string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.captions[collection] = append(v.captions[collection], caption)
}

func (v *fakeView) RenderPagination(collection string, links []PageLink) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pagination[collection] = append(v.pagination[collection], links)
}

func (v *fakeView) RemoveRow(collection string, rowID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.removed = append(v.removed, collection+"/"+rowID)
}

func (v *fakeView) ShowBotInfo(bot models.Bot, processActionLabel string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.botInfo = append(v.botInfo, bot)
	v.processes = append(v.processes, processActionLabel)
}

func (v *fakeView) HideBotInfo() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hides++
}

func (v *fakeView) RenderJobs(jobs []models.Job) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.jobs = append(v.jobs, jobs)
}

func (v *fakeView) SetActionsEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.actions = append(v.actions, enabled)
}

func (v *fakeView) SetConnection(connected bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connections = append(v.connections, connected)
}

func (v *fakeView) ShowStats(stats models.Stats) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stats = append(v.stats, stats)
}

func (v *fakeView) UpdateGroupScrapeDate(groupID string, formatted string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrapeDates[groupID] = formatted
}

func (v *fakeView) ShowToast(level, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.toasts = append(v.toasts, level+": "+message)
}

func (v *fakeView) SetStatus(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, message)
}

func (v *fakeView) lastRows(collection string) []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	renders := v.rows[collection]
	if len(renders) == 0 {
		return nil
	}
	return renders[len(renders)-1]
}

func (v *fakeView) lastCaption(collection string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	captions := v.captions[collection]
	if len(captions) == 0 {
		return ""
	}
	return captions[len(captions)-1]
}

func (v *fakeView) renderCount(collection string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.rows[collection])
}

func (v *fakeView) lastStatus() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.statuses) == 0 {
		return ""
	}
	return v.statuses[len(v.statuses)-1]
}

func (v *fakeView) lastActions() (bool, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.actions) == 0 {
		return false, false
	}
	return v.actions[len(v.actions)-1], true
}
