package dashboard

import (
	"context"
	"strconv"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// Row projections. Each fetch adapter scopes the request to the selected
// bot where the endpoint supports it and turns wire records into typed
// rows, so rendering never re-parses response maps.

func (a *App) currentBotID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentBot == nil {
		return ""
	}
	return a.currentBot.BotID
}

func (a *App) fetchLeads(ctx context.Context, page, perPage int) (*pageData, error) {
	res, err := a.client.Leads(ctx, a.currentBotID(), page, perPage)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(res.Data))
	for _, lead := range res.Data {
		rows = append(rows, leadRow(lead, false))
	}
	return &pageData{Rows: rows, Total: res.Total, TotalPages: res.TotalPages, PerPage: res.PerPage}, nil
}

func (a *App) fetchContacted(ctx context.Context, page, perPage int) (*pageData, error) {
	res, err := a.client.Contacted(ctx, a.currentBotID(), page, perPage)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(res.Data))
	for _, lead := range res.Data {
		rows = append(rows, leadRow(lead, true))
	}
	return &pageData{Rows: rows, Total: res.Total, TotalPages: res.TotalPages, PerPage: res.PerPage}, nil
}

func (a *App) fetchMessages(ctx context.Context, page, perPage int) (*pageData, error) {
	res, err := a.client.Messages(ctx, page, perPage)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(res.Data))
	for i, msg := range res.Data {
		rows = append(rows, messageRow(i, msg))
	}
	return &pageData{Rows: rows, Total: res.Total, TotalPages: res.TotalPages, PerPage: res.PerPage}, nil
}

func (a *App) fetchGroups(ctx context.Context, page, perPage int) (*pageData, error) {
	res, err := a.client.Groups(ctx, a.currentBotID(), page, perPage)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(res.Data))
	a.mu.Lock()
	for _, group := range res.Data {
		a.groupBots[group.GroupID] = group.BotID
		rows = append(rows, groupRow(group))
	}
	a.mu.Unlock()
	return &pageData{Rows: rows, Total: res.Total, TotalPages: res.TotalPages, PerPage: res.PerPage}, nil
}

func leadRow(lead models.Lead, contacted bool) Row {
	var actions []RowAction
	if contacted {
		actions = []RowAction{
			{Name: ActionReset, Label: "Przywróć", Confirm: "Przywrócić do listy leadów?"},
		}
	} else {
		actions = []RowAction{
			{Name: ActionUnmark, Label: "To nie lead", Confirm: "Oznaczyć post jako nie-lead?"},
			{Name: ActionDelete, Label: "Usuń", Confirm: "Czy na pewno usunąć ten post?"},
		}
	}

	return Row{
		ID:      lead.PostID,
		Cells:   []string{lead.Author, lead.Content, lead.CreatedAt, lead.GroupID},
		Actions: actions,
	}
}

func messageRow(index int, msg models.Message) Row {
	return Row{
		ID:    strconv.Itoa(index),
		Cells: []string{msg.SentAt, msg.PostAuthor, msg.PostContent, msg.Content, msg.GroupID},
	}
}

func groupRow(group models.Group) Row {
	status := "OK"
	if group.LastRunError {
		status = "Błąd: " + group.LastErrorMessage
	}

	return Row{
		ID:    group.GroupID,
		Cells: []string{group.GroupID, group.BotID, group.LastScrapeDate, status},
	}
}
