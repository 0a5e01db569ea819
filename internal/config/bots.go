package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// BotConfig describes one configured bot from bots.yaml.
type BotConfig struct {
	BotID          string   `yaml:"bot_id"`
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	BotType        string   `yaml:"bot_type"`
	Enabled        bool     `yaml:"enabled"`
	UserProfileDir string   `yaml:"user_profile_dir"`
	Groups         []string `yaml:"groups"`

	// Common settings
	MaxPostsPerGroup  int `yaml:"max_posts_per_group"`
	InitialScrapeDays int `yaml:"initial_scrape_days"`

	// Lead bot specific
	ClassificationPrompt string `yaml:"classification_prompt"`
	MessagingPrompt      string `yaml:"messaging_prompt"`
	MaxMessagesPerRun    int    `yaml:"max_messages_per_run"`

	// Inviter bot specific
	InvitationCriteriaPrompt  string            `yaml:"invitation_criteria_prompt"`
	InvitationMessageTemplate string            `yaml:"invitation_message_template"`
	TargetGroup               map[string]string `yaml:"target_group"`
	MaxInvitationsPerRun      int               `yaml:"max_invitations_per_run"`

	// Optional cron expression for scheduled full-pipeline runs
	Schedule string `yaml:"schedule"`
}

// Validate checks the per-bot requirements that bot_config has always enforced.
func (b *BotConfig) Validate() error {
	if b.BotID == "" {
		return fmt.Errorf("bot_id is required")
	}
	if len(b.Groups) == 0 {
		return fmt.Errorf("bot %s must have at least one group", b.BotID)
	}
	if b.UserProfileDir == "" {
		return fmt.Errorf("bot %s must have user_profile_dir", b.BotID)
	}

	switch b.BotType {
	case models.BotTypeLead:
		if b.ClassificationPrompt == "" || b.MessagingPrompt == "" {
			return fmt.Errorf("lead bot %s requires classification_prompt and messaging_prompt", b.BotID)
		}
	case models.BotTypeInviter:
		if b.InvitationCriteriaPrompt == "" || b.InvitationMessageTemplate == "" {
			return fmt.Errorf("inviter bot %s requires invitation_criteria_prompt and invitation_message_template", b.BotID)
		}
	default:
		return fmt.Errorf("invalid bot_type %q for bot %s: must be %q or %q",
			b.BotType, b.BotID, models.BotTypeLead, models.BotTypeInviter)
	}

	if b.InitialScrapeDays <= 0 {
		b.InitialScrapeDays = 1
	}

	return nil
}

// ToBot converts the config entry to its API representation.
// Groups is included only when detail is true.
func (b *BotConfig) ToBot(detail bool) models.Bot {
	bot := models.Bot{
		BotID:       b.BotID,
		Name:        b.Name,
		BotType:     b.BotType,
		Description: b.Description,
		Enabled:     b.Enabled,
	}
	if detail {
		bot.Groups = append([]string(nil), b.Groups...)
	}
	return bot
}

// BotRegistry holds all configured bots in file order.
type BotRegistry struct {
	Bots []BotConfig `yaml:"bots"`
}

// LoadBots reads and validates the bot registry from a YAML file.
func LoadBots(path string) (*BotRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bots config: %w", err)
	}

	var registry BotRegistry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse bots config: %w", err)
	}

	seen := make(map[string]bool)
	for i := range registry.Bots {
		bot := &registry.Bots[i]
		if err := bot.Validate(); err != nil {
			return nil, err
		}
		if seen[bot.BotID] {
			return nil, fmt.Errorf("duplicate bot_id %s in bots config", bot.BotID)
		}
		seen[bot.BotID] = true
	}

	return &registry, nil
}

// Get returns the bot with the given id, or nil when unknown.
func (r *BotRegistry) Get(botID string) *BotConfig {
	for i := range r.Bots {
		if r.Bots[i].BotID == botID {
			return &r.Bots[i]
		}
	}
	return nil
}

// FirstEnabled returns the first enabled bot in file order, or nil.
func (r *BotRegistry) FirstEnabled() *BotConfig {
	for i := range r.Bots {
		if r.Bots[i].Enabled {
			return &r.Bots[i]
		}
	}
	return nil
}

// List returns all bots, or only enabled ones when enabledOnly is set.
func (r *BotRegistry) List(enabledOnly bool) []models.Bot {
	out := make([]models.Bot, 0, len(r.Bots))
	for i := range r.Bots {
		if enabledOnly && !r.Bots[i].Enabled {
			continue
		}
		out = append(out, r.Bots[i].ToBot(false))
	}
	return out
}
