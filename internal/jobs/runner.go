package jobs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/config"
	"github.com/groupleads/leadbot-admin/internal/models"
)

// ScriptRunner executes one pipeline stage as an external process, the same
// scripts the Makefile targets invoke by hand. Cancelling the job context
// kills the process.
type ScriptRunner struct {
	Python string
	Script string
	Label  string
}

var _ Runner = (*ScriptRunner)(nil)

// Run invokes the script with the bot id and waits for it to finish.
func (r *ScriptRunner) Run(ctx context.Context, bot *config.BotConfig, report ProgressFunc) error {
	args := []string{r.Script, "--bot-id", bot.BotID}
	if bot.MaxPostsPerGroup > 0 {
		args = append(args, "--max-posts", strconv.Itoa(bot.MaxPostsPerGroup))
	}

	cmd := exec.CommandContext(ctx, r.Python, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logrus.Infof("Running %s for bot %s: %s %s", r.Label, bot.BotID, r.Python, r.Script)
	report(0, r.Label)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := lastLine(stderr.Bytes())
		if detail != "" {
			return fmt.Errorf("%s: %w (%s)", r.Label, err, detail)
		}
		return fmt.Errorf("%s: %w", r.Label, err)
	}

	report(100, r.Label)
	return nil
}

func lastLine(output []byte) string {
	lines := bytes.Split(bytes.TrimSpace(output), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}

// NewScriptRunners builds the default runner set from the configured scripts
// directory. Keys match the job types the manager accepts.
func NewScriptRunners(cfg *config.Config) map[string]Runner {
	script := func(name string) string {
		return filepath.Join(cfg.ScriptsDir, name)
	}

	return map[string]Runner{
		models.JobTypeScrape: &ScriptRunner{
			Python: cfg.PythonBin, Script: script("scrape_posts.py"), Label: "Scraping groups",
		},
		models.JobTypeClassify: &ScriptRunner{
			Python: cfg.PythonBin, Script: script("classify_posts.py"), Label: "Classifying posts",
		},
		models.JobTypeMessage: &ScriptRunner{
			Python: cfg.PythonBin, Script: script("send_messages.py"), Label: "Sending messages",
		},
		models.JobTypeInvite: &ScriptRunner{
			Python: cfg.PythonBin, Script: script("invite_users.py"), Label: "Inviting users",
		},
	}
}
