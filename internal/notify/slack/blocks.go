package slack

import (
	"fmt"
	"strings"

	slacklib "github.com/slack-go/slack"

	"github.com/cocoflow/insight-engine/internal/notify"
)

// BuildAlertBlocks builds Slack Block Kit blocks for a structured alert: a
// header, an optional body section and one fields section listing the items.
func BuildAlertBlocks(title, body string, items []notify.AlertItem) []slacklib.Block {
	blocks := []slacklib.Block{
		slacklib.NewHeaderBlock(
			slacklib.NewTextBlockObject(slacklib.PlainTextType, title, false, false),
		),
	}

	if body != "" {
		blocks = append(blocks, slacklib.NewSectionBlock(
			slacklib.NewTextBlockObject(slacklib.MarkdownType, body, false, false),
			nil,
			nil,
		))
	}

	if len(items) > 0 {
		lines := make([]string, 0, len(items))
		for _, item := range items {
			lines = append(lines, fmt.Sprintf("• *%s:* %s", item.Label, item.Value))
		}
		blocks = append(blocks, slacklib.NewSectionBlock(
			slacklib.NewTextBlockObject(slacklib.MarkdownType, strings.Join(lines, "\n"), false, false),
			nil,
			nil,
		))
	}

	return blocks
}
