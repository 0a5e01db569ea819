// Package dashboard implements the admin console's client core: paginated
// collection state, bot selection, job control and the live job-status
// stream.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// Confirmer asks the operator to confirm a destructive action.
type Confirmer func(prompt string) bool

// statsInterval is how often header stats and the groups view are
// reconciled against the server.
const statsInterval = 30 * time.Second

// App is the explicit application state the whole dashboard runs on. All
// mutable view state lives here; handlers receive and update it instead of
// touching globals.
type App struct {
	client  *Client
	view    View
	confirm Confirmer

	mu         sync.Mutex
	bots       []models.Bot
	currentBot *models.Bot
	groupBots  map[string]string // group id -> bot id, from the last groups load
	activeJobs []models.Job
	actionsOn  bool

	collections map[string]*Collection
	stream      *StreamReader

	statsStop chan struct{}
	statsOnce sync.Once
}

// NewApp wires the dashboard state machine to an API client, a view and a
// confirmation prompt.
func NewApp(client *Client, view View, confirm Confirmer) *App {
	a := &App{
		client:    client,
		view:      view,
		confirm:   confirm,
		groupBots: make(map[string]string),
		actionsOn: true,
		statsStop: make(chan struct{}),
	}

	a.collections = map[string]*Collection{
		CollectionLeads:     NewCollection(CollectionLeads, view, 20, a.fetchLeads),
		CollectionContacted: NewCollection(CollectionContacted, view, 20, a.fetchContacted),
		CollectionMessages:  NewCollection(CollectionMessages, view, 20, a.fetchMessages),
		CollectionGroups:    NewCollection(CollectionGroups, view, 20, a.fetchGroups),
	}

	a.stream = NewStreamReader(client.StreamURL(), a.handleSnapshot, view.SetConnection)

	return a
}

// Start performs the page-load sequence: bots, leads page 1, live stream,
// periodic stats refresh.
func (a *App) Start(ctx context.Context) error {
	if err := a.LoadBots(ctx); err != nil {
		return err
	}

	if err := a.Load(ctx, CollectionLeads, 1); err != nil {
		logrus.Errorf("Initial leads load failed: %v", err)
	}
	a.RefreshStats(ctx)

	a.stream.Start()

	go a.statsLoop()

	return nil
}

// Close tears down the stream and the stats ticker.
func (a *App) Close() {
	a.statsOnce.Do(func() { close(a.statsStop) })
	a.stream.Close()
}

func (a *App) statsLoop() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.statsStop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			a.RefreshStats(ctx)
			// Reconciling reload: the scrape-date editor patches a single
			// cell, this periodic reload trues the groups view up.
			if err := a.collections[CollectionGroups].Reload(ctx); err != nil {
				logrus.Debugf("Periodic groups reconcile failed: %v", err)
			}
			cancel()
		}
	}
}

// LoadBots fetches the bot list and selects the first enabled bot, if any.
// With no enabled bot the selection stays empty and loads are unscoped.
func (a *App) LoadBots(ctx context.Context) error {
	bots, err := a.client.Bots(ctx)
	if err != nil {
		a.view.SetStatus("Nie udało się wczytać listy botów")
		return err
	}

	a.mu.Lock()
	a.bots = bots
	a.mu.Unlock()

	for _, bot := range bots {
		if bot.Enabled {
			return a.SelectBot(ctx, bot.BotID)
		}
	}

	return a.SelectBot(ctx, "")
}

// Bots returns the last loaded bot list.
func (a *App) Bots() []models.Bot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Bot(nil), a.bots...)
}

// CurrentBot returns the selected bot, or nil.
func (a *App) CurrentBot() *models.Bot {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentBot == nil {
		return nil
	}
	bot := *a.currentBot
	return &bot
}

// SelectBot switches the bot context. An empty id clears the selection.
// Bot-scoped collections reset to page 1 and reload.
func (a *App) SelectBot(ctx context.Context, botID string) error {
	if botID == "" {
		a.mu.Lock()
		a.currentBot = nil
		a.mu.Unlock()
		a.view.HideBotInfo()
	} else {
		bot, err := a.client.Bot(ctx, botID)
		if err != nil {
			a.view.ShowToast(ToastError, fmt.Sprintf("Nie udało się wczytać bota %s", botID))
			return err
		}

		a.mu.Lock()
		a.currentBot = bot
		a.mu.Unlock()

		a.view.ShowBotInfo(*bot, processActionLabel(bot.BotType))
	}

	a.recomputeGating()

	for _, name := range []string{CollectionLeads, CollectionGroups} {
		a.collections[name].Reset()
		if err := a.collections[name].Load(ctx, 1); err != nil {
			logrus.Errorf("Failed to reload %s after bot change: %v", name, err)
		}
	}
	a.RefreshStats(ctx)

	return nil
}

// processActionLabel is the label of the type-specific process button.
func processActionLabel(botType string) string {
	if botType == models.BotTypeInviter {
		return "Wyślij zaproszenia"
	}
	return "Wyślij wiadomości"
}

// Load fetches one page of a collection.
func (a *App) Load(ctx context.Context, collection string, page int) error {
	c, ok := a.collections[collection]
	if !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	return c.Load(ctx, page)
}

// Collection exposes a collection's state, mainly for page-link wiring.
func (a *App) Collection(name string) *Collection {
	return a.collections[name]
}

// RowAction runs a confirmed destructive action on one row: the row is
// removed immediately, then the owning collection reloads so counts and
// pagination stay consistent.
func (a *App) RowAction(ctx context.Context, collection, rowID, action string) error {
	prompt, call, err := a.rowActionCall(collection, action)
	if err != nil {
		return err
	}

	if !a.confirm(prompt) {
		return nil
	}

	if err := call(ctx, rowID); err != nil {
		a.view.ShowToast(ToastError, actionErrorMessage(err))
		return err
	}

	a.view.RemoveRow(collection, rowID)
	if err := a.collections[collection].Reload(ctx); err != nil {
		logrus.Errorf("Reload after %s/%s failed: %v", collection, action, err)
	}
	return nil
}

func (a *App) rowActionCall(collection, action string) (string, func(context.Context, string) error, error) {
	switch {
	case collection == CollectionLeads && action == ActionUnmark:
		return "Oznaczyć post jako nie-lead?", a.client.UnmarkLead, nil
	case collection == CollectionLeads && action == ActionDelete:
		return "Czy na pewno usunąć ten post?", a.client.DeleteLead, nil
	case collection == CollectionContacted && action == ActionReset:
		return "Przywrócić do listy leadów?", a.client.ResetContact, nil
	}
	return "", nil, fmt.Errorf("unknown action %q for collection %q", action, collection)
}

func actionErrorMessage(err error) string {
	if apiErr, ok := err.(*APIError); ok && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

// StartJob starts a job for the selected bot. The four action buttons are
// disabled optimistically; a rejected start re-enables them and surfaces the
// server's detail text.
func (a *App) StartJob(ctx context.Context, jobType string) error {
	bot := a.CurrentBot()
	if bot == nil {
		a.view.ShowToast(ToastError, "Najpierw wybierz bota")
		return fmt.Errorf("no bot selected")
	}

	a.setActionsEnabled(false)

	jobID, err := a.client.StartJob(ctx, bot.BotID, jobType)
	if err != nil {
		// Roll back the optimistic disable; the stream cannot help here
		// because no job was created.
		a.setActionsEnabled(true)
		a.view.ShowToast(ToastError, actionErrorMessage(err))
		return err
	}

	a.view.ShowToast(ToastSuccess, fmt.Sprintf("Zadanie %s uruchomione (%s)", jobType, jobID))
	return nil
}

// CancelJob requests cancellation after confirmation. Only a toast reports
// the outcome; the stream remains the source of truth for job state.
func (a *App) CancelJob(ctx context.Context, jobID string) error {
	if !a.confirm("Czy na pewno anulować to zadanie?") {
		return nil
	}

	if err := a.client.CancelJob(ctx, jobID); err != nil {
		a.view.ShowToast(ToastError, actionErrorMessage(err))
		return err
	}

	a.view.ShowToast(ToastInfo, "Wysłano żądanie anulowania")
	return nil
}

// handleSnapshot consumes one jobs-stream event: the job panel is fully
// replaced and button gating recomputed. This is the only path that
// re-enables the action buttons once a bot's jobs have finished.
func (a *App) handleSnapshot(snapshot models.JobsSnapshot) {
	a.mu.Lock()
	a.activeJobs = snapshot.Jobs
	a.mu.Unlock()

	a.view.RenderJobs(snapshot.Jobs)
	a.recomputeGating()
}

// ActiveJobs returns the last received job snapshot.
func (a *App) ActiveJobs() []models.Job {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Job(nil), a.activeJobs...)
}

func (a *App) recomputeGating() {
	a.mu.Lock()
	busy := false
	if a.currentBot != nil {
		for _, job := range a.activeJobs {
			if job.BotID == a.currentBot.BotID && job.Active() {
				busy = true
				break
			}
		}
	}
	a.mu.Unlock()

	a.setActionsEnabled(!busy)
}

func (a *App) setActionsEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.actionsOn != enabled
	a.actionsOn = enabled
	a.mu.Unlock()

	if changed {
		a.view.SetActionsEnabled(enabled)
	}
}

// ActionsEnabled reports the current gating state.
func (a *App) ActionsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.actionsOn
}

// RefreshStats fetches the header stats.
func (a *App) RefreshStats(ctx context.Context) {
	stats, err := a.client.Stats(ctx)
	if err != nil {
		logrus.Errorf("Failed to refresh stats: %v", err)
		return
	}
	a.view.ShowStats(*stats)
}

// DefaultScrapeDate is what the date editor opens with: the group's current
// scrape date, or seven days ago when none is recorded.
func (a *App) DefaultScrapeDate(group models.Group) time.Time {
	if group.LastScrapeDateISO != "" {
		if t, err := time.Parse(time.RFC3339, group.LastScrapeDateISO); err == nil {
			return t
		}
	}
	return time.Now().AddDate(0, 0, -7)
}

// SaveScrapeDate PATCHes a group's scrape date. On success only the affected
// cell is patched; the periodic groups reload reconciles the rest.
func (a *App) SaveScrapeDate(ctx context.Context, groupID string, scrapeDate time.Time) error {
	a.mu.Lock()
	botID, ok := a.groupBots[groupID]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown group %q", groupID)
	}

	saved, err := a.client.UpdateScrapeDate(ctx, botID, groupID, scrapeDate)
	if err != nil {
		a.view.ShowToast(ToastError, actionErrorMessage(err))
		return err
	}

	a.view.UpdateGroupScrapeDate(groupID, saved.Local().Format("2 January 2006, 15:04"))
	a.view.ShowToast(ToastSuccess, "Zapisano datę ostatniego skanowania")
	return nil
}
