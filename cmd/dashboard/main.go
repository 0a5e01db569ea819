// Command dashboard is a terminal front end for the admin API. It renders
// the same collections, bot panel and live job stream the web panel shows,
// driven by a small command language on stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/dashboard"
	"github.com/groupleads/leadbot-admin/internal/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	baseURL := flag.String("url", envOr("ADMIN_URL", "http://localhost:8000"), "admin API base URL")
	flag.Parse()

	logrus.SetLevel(logrus.WarnLevel)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	view := newTermView(os.Stdout)
	client := dashboard.NewClient(*baseURL)

	reader := bufio.NewReader(os.Stdin)
	confirm := func(prompt string) bool {
		fmt.Printf("%s [t/N] ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "t" || answer == "tak" || answer == "y"
	}

	app := dashboard.NewApp(client, view, confirm)
	defer app.Close()

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Nie udało się połączyć z %s: %v\n", *baseURL, err)
		os.Exit(1)
	}

	fmt.Println("Polecenia: leads|contacted|messages|groups [strona], bot <id>, run <scrape|classify|message|invite|full>, cancel <job>, unmark|delete|reset <post>, date <group> <RRRR-MM-DD>, quit")

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		if !runCommand(ctx, app, strings.Fields(strings.TrimSpace(line))) {
			break
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// runCommand dispatches one stdin command. Returns false to exit the loop.
func runCommand(ctx context.Context, app *dashboard.App, args []string) bool {
	if len(args) == 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch args[0] {
	case "quit", "exit":
		return false

	case dashboard.CollectionLeads, dashboard.CollectionContacted,
		dashboard.CollectionMessages, dashboard.CollectionGroups:
		page := 1
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil {
				page = n
			}
		}
		if err := app.Load(ctx, args[0], page); err != nil {
			fmt.Printf("Błąd: %v\n", err)
		}

	case "bot":
		botID := ""
		if len(args) > 1 {
			botID = args[1]
		}
		if err := app.SelectBot(ctx, botID); err != nil {
			fmt.Printf("Błąd: %v\n", err)
		}

	case "bots":
		for _, bot := range app.Bots() {
			state := "wyłączony"
			if bot.Enabled {
				state = "aktywny"
			}
			fmt.Printf("  %s  %-24s %-12s %s\n", bot.BotID, bot.Name, bot.BotType, state)
		}

	case "run":
		if len(args) < 2 {
			fmt.Println("Użycie: run <scrape|classify|message|invite|full>")
			return true
		}
		app.StartJob(ctx, args[1])

	case "cancel":
		if len(args) < 2 {
			fmt.Println("Użycie: cancel <job>")
			return true
		}
		app.CancelJob(ctx, args[1])

	case "unmark":
		if len(args) > 1 {
			app.RowAction(ctx, dashboard.CollectionLeads, args[1], dashboard.ActionUnmark)
		}

	case "delete":
		if len(args) > 1 {
			app.RowAction(ctx, dashboard.CollectionLeads, args[1], dashboard.ActionDelete)
		}

	case "reset":
		if len(args) > 1 {
			app.RowAction(ctx, dashboard.CollectionContacted, args[1], dashboard.ActionReset)
		}

	case "date":
		if len(args) < 3 {
			fmt.Println("Użycie: date <group> <RRRR-MM-DD>")
			return true
		}
		when, err := time.Parse("2006-01-02", args[2])
		if err != nil {
			fmt.Printf("Nieprawidłowa data: %v\n", err)
			return true
		}
		app.SaveScrapeDate(ctx, args[1], when)

	case "stats":
		app.RefreshStats(ctx)

	default:
		fmt.Printf("Nieznane polecenie: %s\n", args[0])
	}

	return true
}

// termView renders the dashboard state as plain text. Stream callbacks and
// command handling run on different goroutines, so every draw takes the
// mutex.
type termView struct {
	mu  sync.Mutex
	out *os.File

	actionsEnabled bool
	connected      bool
}

func newTermView(out *os.File) *termView {
	return &termView{out: out, actionsEnabled: true}
}

var _ dashboard.View = (*termView)(nil)

func (v *termView) RenderRows(collection string, rows []dashboard.Row) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintf(v.out, "\n== %s ==\n", collection)
	for _, row := range rows {
		fmt.Fprintf(v.out, "  [%s] %s\n", row.ID, strings.Join(row.Cells, " | "))
		for _, action := range row.Actions {
			fmt.Fprintf(v.out, "      -> %s %s (%s)\n", action.Name, row.ID, action.Label)
		}
	}
}

func (v *termView) RenderCaption(collection string, caption string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "  %s\n", caption)
}

func (v *termView) RenderPagination(collection string, links []dashboard.PageLink) {
	v.mu.Lock()
	defer v.mu.Unlock()

	parts := make([]string, 0, len(links))
	for _, link := range links {
		switch {
		case link.Ellipsis:
			parts = append(parts, "…")
		case link.Disabled:
			parts = append(parts, fmt.Sprintf("(%s)", link.Label))
		case link.Active:
			parts = append(parts, fmt.Sprintf("[%s]", link.Label))
		default:
			parts = append(parts, link.Label)
		}
	}
	fmt.Fprintf(v.out, "  %s\n", strings.Join(parts, " "))
}

func (v *termView) RemoveRow(collection string, rowID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "  usunięto wiersz %s z %s\n", rowID, collection)
}

func (v *termView) ShowBotInfo(bot models.Bot, processActionLabel string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintf(v.out, "\nBot: %s (%s, %s)\n", bot.Name, bot.BotID, bot.BotType)
	fmt.Fprintf(v.out, "  Grupy: %s\n", strings.Join(bot.Groups, ", "))
	fmt.Fprintf(v.out, "  Akcje: Skanuj | Klasyfikuj | %s | Pełny przebieg\n", processActionLabel)
}

func (v *termView) HideBotInfo() {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, "\nNie wybrano bota")
}

func (v *termView) RenderJobs(jobs []models.Job) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(jobs) == 0 {
		return
	}
	fmt.Fprintln(v.out, "\n-- zadania --")
	for _, job := range jobs {
		fmt.Fprintf(v.out, "  %s %s/%s %s %.0f%%", job.JobID, job.BotID, job.JobType, job.Status, job.Progress)
		if job.CurrentStep != "" {
			fmt.Fprintf(v.out, " (%s)", job.CurrentStep)
		}
		fmt.Fprintln(v.out)
	}
}

func (v *termView) SetActionsEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.actionsEnabled == enabled {
		return
	}
	v.actionsEnabled = enabled
	if enabled {
		fmt.Fprintln(v.out, "  przyciski akcji: odblokowane")
	} else {
		fmt.Fprintln(v.out, "  przyciski akcji: zablokowane (zadanie w toku)")
	}
}

func (v *termView) SetConnection(connected bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.connected == connected {
		return
	}
	v.connected = connected
	if connected {
		fmt.Fprintln(v.out, "  strumień zadań: połączono")
	} else {
		fmt.Fprintln(v.out, "  strumień zadań: rozłączono, ponawiam...")
	}
}

func (v *termView) ShowStats(stats models.Stats) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "  Leady: %d | Skontaktowane: %d | Wiadomości: %d | Grupy: %d (błędy: %d)\n",
		stats.Leads, stats.Contacted, stats.Messages, stats.Groups, stats.GroupsWithErrors)
}

func (v *termView) UpdateGroupScrapeDate(groupID string, formatted string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "  grupa %s: ostatnie skanowanie %s\n", groupID, formatted)
}

func (v *termView) ShowToast(level, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "  [%s] %s\n", strings.ToUpper(level), message)
}

func (v *termView) SetStatus(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if message == "" {
		return
	}
	fmt.Fprintf(v.out, "  ! %s\n", message)
}
