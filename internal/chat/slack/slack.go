package slackchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/cards"
	"github.com/spec-kit/helpdesk-bot/internal/chat"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

// Slack limits a section block to ten fields.
const maxSectionFields = 10

// Slack rejects header blocks whose text exceeds 150 characters.
const maxHeaderChars = 150

// errors that mean the addressed conversation or message is gone.
var missingTargetErrors = map[string]bool{
	"channel_not_found": true,
	"message_not_found": true,
	"is_archived":       true,
	"not_in_channel":    true,
}

// Config holds Slack adapter configuration.
type Config struct {
	BotToken string // xoxb-... Bot User OAuth Token
	APIURL   string // optional override of https://slack.com/api/
}

// Client implements chat.Dispatcher and the member directory on top of the Slack Web API.
type Client struct {
	api    *slack.Client
	logger *zap.Logger
}

// New creates a Slack client. It does not contact Slack; call Verify for that.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("slack: bot token is required")
	}
	opts := []slack.Option{}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	return &Client{api: slack.New(cfg.BotToken, opts...), logger: logger}, nil
}

// Verify checks the token against Slack.
func (c *Client) Verify(ctx context.Context) error {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	c.logger.Info("slack bot authorized", zap.String("user", resp.User), zap.String("team", resp.Team))
	return nil
}

// Send posts a message, optionally as a thread reply.
func (c *Client) Send(ctx context.Context, to chat.ConversationRef, msg chat.Message) (chat.MessageRef, error) {
	opts := messageOptions(msg)
	if to.ThreadID != "" {
		opts = append(opts, slack.MsgOptionTS(to.ThreadID))
	}
	channel, ts, err := c.api.PostMessageContext(ctx, to.ConversationID, opts...)
	if err != nil {
		return chat.MessageRef{}, mapError(to.ConversationID, err)
	}
	return chat.MessageRef{ConversationID: channel, ActivityID: ts}, nil
}

// Update replaces the content of a previously sent message.
func (c *Client) Update(ctx context.Context, ref chat.MessageRef, msg chat.Message) error {
	if _, _, _, err := c.api.UpdateMessageContext(ctx, ref.ConversationID, ref.ActivityID, messageOptions(msg)...); err != nil {
		return mapError(ref.ConversationID, err)
	}
	return nil
}

// LookupMember resolves a member id to a profile.
func (c *Client) LookupMember(ctx context.Context, objectID string) (*domain.MemberProfile, error) {
	user, err := c.api.GetUserInfoContext(ctx, objectID)
	if err != nil {
		var slackErr slack.SlackErrorResponse
		if errors.As(err, &slackErr) && slackErr.Err == "user_not_found" {
			return nil, fmt.Errorf("%w: %s", chat.ErrMemberNotFound, objectID)
		}
		return nil, fmt.Errorf("slack: user info: %w", err)
	}
	name := user.RealName
	if name == "" {
		name = user.Profile.DisplayName
	}
	if name == "" {
		name = user.Name
	}
	return &domain.MemberProfile{ObjectID: user.ID, Name: name, Email: user.Profile.Email}, nil
}

func messageOptions(msg chat.Message) []slack.MsgOption {
	text := RenderMentions(msg.Text, msg.Mentions)
	if text == "" && msg.Card != nil {
		text = msg.Card.Title
	}
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if msg.Card != nil {
		opts = append(opts, slack.MsgOptionBlocks(Blocks(msg.Card)...))
	}
	return opts
}

// RenderMentions replaces mention placeholders with Slack user references.
func RenderMentions(text string, mentions []chat.Mention) string {
	for _, m := range mentions {
		if m.Text == "" || m.ObjectID == "" {
			continue
		}
		text = strings.Replace(text, m.Text, "<@"+m.ObjectID+">", 1)
	}
	return text
}

// Blocks renders a card as Block Kit blocks.
func Blocks(card *cards.Card) []slack.Block {
	var blocks []slack.Block
	if card.Title != "" {
		header, cut := truncateRunes(card.Title, maxHeaderChars)
		blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, header, false, false)))
		if cut {
			blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(slack.PlainTextType, card.Title, false, false), nil, nil))
		}
	}
	if card.Subtitle != "" {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, card.Subtitle, false, false), nil, nil))
	}

	var fields []*slack.TextBlockObject
	for _, fact := range card.Facts {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*\n%s", fact.Label, fact.Value), false, false))
	}
	for len(fields) > 0 {
		n := min(len(fields), maxSectionFields)
		blocks = append(blocks, slack.NewSectionBlock(nil, fields[:n], nil))
		fields = fields[n:]
	}

	for _, input := range card.Inputs {
		line := fmt.Sprintf("*%s*", input.Label)
		if input.Required {
			line += " (required)"
		}
		if input.Value != "" {
			line += "\n" + input.Value
		}
		if input.Invalid {
			line += "\n:warning: please fill in this field"
		}
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, line, false, false), nil, nil))
	}

	if len(card.Actions) > 0 {
		elements := make([]slack.BlockElement, 0, len(card.Actions))
		for i, action := range card.Actions {
			label := slack.NewTextBlockObject(slack.PlainTextType, action.Label, false, false)
			value, err := json.Marshal(action.Value)
			if err != nil {
				continue
			}
			elements = append(elements, slack.NewButtonBlockElement(fmt.Sprintf("%s:%d", action.ID, i), string(value), label))
		}
		blocks = append(blocks, slack.NewActionBlock("ticket_actions", elements...))
	}

	if card.Footer != "" {
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, card.Footer, false, false)))
	}
	return blocks
}

// truncateRunes shortens s to at most limit runes, ending it with an ellipsis
// when anything was cut.
func truncateRunes(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit-1]) + "…", true
}

func mapError(target string, err error) error {
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) && missingTargetErrors[slackErr.Err] {
		return apperrors.NewConversationNotFound(target, fmt.Errorf("%w: %s", chat.ErrConversationNotFound, slackErr.Err))
	}
	return fmt.Errorf("slack: %w", err)
}
