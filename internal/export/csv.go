// Package export builds CSV lead exports and files them in the archive.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/archive"
	"github.com/groupleads/leadbot-admin/internal/storage"
)

// exportPrefix is the archive folder all export artifacts live under. The
// public API addresses artifacts by their base name.
const exportPrefix = "exports/"

// Service produces lead export files.
type Service struct {
	posts   *storage.PostStore
	archive archive.Archive
}

// NewService creates an export service. The archive may be nil, in which case
// exports are built but not stored (Run returns an error).
func NewService(posts *storage.PostStore, arc archive.Archive) *Service {
	return &Service{posts: posts, archive: arc}
}

// BuildCSV renders all leads (optionally scoped to a bot) as CSV.
func (s *Service) BuildCSV(botID string) ([]byte, int, error) {
	leads, err := s.posts.LeadsForExport(botID)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"post_id", "author", "content", "created_at", "group_id", "bot_id", "contacted"}
	if err := w.Write(header); err != nil {
		return nil, 0, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, lead := range leads {
		record := []string{
			lead.PostID,
			lead.Author,
			lead.Content,
			lead.CreatedAt.Format(time.RFC3339),
			lead.GroupID,
			lead.BotID,
			strconv.FormatBool(lead.IsContacted),
		}
		if err := w.Write(record); err != nil {
			return nil, 0, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), len(leads), nil
}

// Run builds an export and stores it in the archive, returning the artifact
// name.
func (s *Service) Run(botID string) (string, error) {
	if s.archive == nil {
		return "", fmt.Errorf("export archive is not configured")
	}

	data, count, err := s.BuildCSV(botID)
	if err != nil {
		return "", fmt.Errorf("failed to build export: %w", err)
	}

	name := exportName(botID, time.Now().UTC())
	if err := s.archive.Store(name, data); err != nil {
		return "", err
	}

	logrus.Infof("Exported %d leads to %s", count, name)
	return name, nil
}

// List returns the base names of all stored export artifacts.
func (s *Service) List() ([]string, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("export archive is not configured")
	}

	names, err := s.archive.List(exportPrefix)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(names))
	for _, name := range names {
		files = append(files, strings.TrimPrefix(name, exportPrefix))
	}
	return files, nil
}

// Fetch downloads a stored export by base name.
func (s *Service) Fetch(name string) ([]byte, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("export archive is not configured")
	}
	return s.archive.Retrieve(exportPrefix + name)
}

// Delete removes a stored export by base name.
func (s *Service) Delete(name string) error {
	if s.archive == nil {
		return fmt.Errorf("export archive is not configured")
	}
	if err := s.archive.Delete(exportPrefix + name); err != nil {
		return err
	}
	logrus.Infof("Deleted export %s", name)
	return nil
}

func exportName(botID string, at time.Time) string {
	scope := "all"
	if botID != "" {
		scope = botID
	}
	return fmt.Sprintf("%sleads-%s-%s.csv", exportPrefix, scope, at.Format("20060102-150405"))
}
