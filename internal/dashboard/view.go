package dashboard

import "github.com/groupleads/leadbot-admin/internal/models"

// Collection names. Each collection renders into its own region of the view.
const (
	CollectionLeads     = "leads"
	CollectionContacted = "contacted"
	CollectionMessages  = "messages"
	CollectionGroups    = "groups"
)

// Row action names understood by App.RowAction.
const (
	ActionUnmark = "unmark"
	ActionDelete = "delete"
	ActionReset  = "reset"
)

// Toast severities.
const (
	ToastInfo    = "info"
	ToastSuccess = "success"
	ToastError   = "error"
)

// RowAction is a destructive operation a row offers. Confirm is the prompt
// shown before the request is issued.
type RowAction struct {
	Name    string
	Label   string
	Confirm string
}

// Row is the typed view-model for one table row, keyed by entity id.
type Row struct {
	ID      string
	Cells   []string
	Actions []RowAction
}

// View is everything the application state machine needs from a front end.
// All methods are called from whatever goroutine drove the state change;
// implementations serialize their own drawing.
type View interface {
	// Collection regions
	RenderRows(collection string, rows []Row)
	RenderCaption(collection string, caption string)
	RenderPagination(collection string, links []PageLink)
	RemoveRow(collection string, rowID string)

	// Bot info panel
	ShowBotInfo(bot models.Bot, processActionLabel string)
	HideBotInfo()

	// Job panel and action gating
	RenderJobs(jobs []models.Job)
	SetActionsEnabled(enabled bool)
	SetConnection(connected bool)

	// Header stats
	ShowStats(stats models.Stats)

	// Targeted patch of a group's scrape-date cell
	UpdateGroupScrapeDate(groupID string, formatted string)

	// ShowToast queues a transient stacked banner. Expiry is the front
	// end's contract: a graphical view removes each toast after five
	// seconds, the terminal view prints it and moves on.
	ShowToast(level, message string)
	// SetStatus shows a persistent message until replaced or cleared.
	SetStatus(message string)
}
