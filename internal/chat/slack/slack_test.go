package slackchat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/cards"
	"github.com/spec-kit/helpdesk-bot/internal/chat"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{BotToken: "xoxb-test", APIURL: srv.URL + "/"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error without bot token")
	}
}

func TestSend_ReturnsMessageRef(t *testing.T) {
	var gotPath, gotChannel, gotThread, gotText string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotPath = r.URL.Path
		gotChannel = r.FormValue("channel")
		gotThread = r.FormValue("thread_ts")
		gotText = r.FormValue("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C100","ts":"1700000000.000100"}`))
	})

	ref, err := c.Send(context.Background(), chat.ConversationRef{ConversationID: "C100", ThreadID: "1699.1"}, chat.Message{
		Text:     "<at>Ann</at>, <at>Bob</at>",
		Mentions: []chat.Mention{{Text: "<at>Ann</at>", ObjectID: "U1"}, {Text: "<at>Bob</at>", ObjectID: "U2"}},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ref.ConversationID != "C100" || ref.ActivityID != "1700000000.000100" {
		t.Errorf("unexpected ref %+v", ref)
	}
	if !strings.HasSuffix(gotPath, "chat.postMessage") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotChannel != "C100" || gotThread != "1699.1" {
		t.Errorf("channel=%q thread=%q", gotChannel, gotThread)
	}
	if gotText != "<@U1>, <@U2>" {
		t.Errorf("text = %q", gotText)
	}
}

func TestSend_ChannelNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	})

	_, err := c.Send(context.Background(), chat.ConversationRef{ConversationID: "C404"}, chat.Message{Text: "hi"})
	if !errors.Is(err, chat.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	if !apperrors.HasCode(err, apperrors.CodeConversationNotFound) {
		t.Errorf("expected CONVERSATION_NOT_FOUND code, got %v", err)
	}
	if got := apperrors.ToDomainError(err).Details["conversation_id"]; got != "C404" {
		t.Errorf("conversation_id = %v", got)
	}
}

func TestUpdate_OtherErrorsAreNotMissingTarget(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"ratelimited"}`))
	})

	err := c.Update(context.Background(), chat.MessageRef{ConversationID: "C1", ActivityID: "1.2"}, chat.Message{Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, chat.ErrConversationNotFound) || apperrors.HasCode(err, apperrors.CodeConversationNotFound) {
		t.Fatalf("ratelimited should not map to a missing conversation: %v", err)
	}
}

func TestLookupMember(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = r.ParseForm()
		if r.FormValue("user") == "U404" {
			_, _ = w.Write([]byte(`{"ok":false,"error":"user_not_found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"user":{"id":"U1","name":"ann","real_name":"Ann Lee","profile":{"email":"ann@example.com"}}}`))
	})

	profile, err := c.LookupMember(context.Background(), "U1")
	if err != nil {
		t.Fatalf("LookupMember() error = %v", err)
	}
	if profile.Name != "Ann Lee" || profile.Email != "ann@example.com" || profile.ObjectID != "U1" {
		t.Errorf("unexpected profile %+v", profile)
	}

	if _, err := c.LookupMember(context.Background(), "U404"); !errors.Is(err, chat.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestRenderMentions_SkipsIncomplete(t *testing.T) {
	got := RenderMentions("<at>Ann</at> and <at>Ghost</at>", []chat.Mention{
		{Text: "<at>Ann</at>", ObjectID: "U1"},
		{Text: "<at>Ghost</at>"},
	})
	if got != "<@U1> and <at>Ghost</at>" {
		t.Errorf("got %q", got)
	}
}

func TestBlocks_SplitsFacts(t *testing.T) {
	card := &cards.Card{Title: "T", Footer: "f"}
	for i := 0; i < 12; i++ {
		card.Facts = append(card.Facts, cards.Fact{Label: "L", Value: "V"})
	}
	card.Actions = []cards.Action{{ID: "close", Label: "Close", Value: map[string]string{"ticketId": "1", "action": "close"}}}

	blocks := Blocks(card)
	// header + two fact sections + actions + context
	if len(blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(blocks))
	}
	if blocks[0].BlockType() != slack.MBTHeader {
		t.Errorf("first block = %s", blocks[0].BlockType())
	}
	second, ok := blocks[2].(*slack.SectionBlock)
	if !ok || len(second.Fields) != 2 {
		t.Errorf("expected overflow section with 2 fields, got %#v", blocks[2])
	}
	if blocks[4].BlockType() != slack.MBTContext {
		t.Errorf("last block = %s", blocks[4].BlockType())
	}
	actions, ok := blocks[3].(*slack.ActionBlock)
	if !ok || len(actions.Elements.ElementSet) != 1 {
		t.Fatalf("expected one button, got %#v", blocks[3])
	}
	button := actions.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	if button.Value != `{"action":"close","ticketId":"1"}` {
		t.Errorf("button value = %s", button.Value)
	}
}

func TestBlocks_LongTitleFitsHeader(t *testing.T) {
	title := "Ticket #7: " + strings.Repeat("é", 200)
	blocks := Blocks(&cards.Card{Title: title})
	if len(blocks) != 2 {
		t.Fatalf("expected header and full-title section, got %d blocks", len(blocks))
	}

	header, ok := blocks[0].(*slack.HeaderBlock)
	if !ok {
		t.Fatalf("first block = %#v", blocks[0])
	}
	if n := utf8.RuneCountInString(header.Text.Text); n > maxHeaderChars {
		t.Errorf("header has %d characters, limit is %d", n, maxHeaderChars)
	}
	if !strings.HasSuffix(header.Text.Text, "…") {
		t.Errorf("truncated header should end with an ellipsis: %q", header.Text.Text)
	}

	section, ok := blocks[1].(*slack.SectionBlock)
	if !ok || section.Text == nil || section.Text.Text != title {
		t.Errorf("full title should follow the header, got %#v", blocks[1])
	}
}

func TestBlocks_ShortTitleUnchanged(t *testing.T) {
	blocks := Blocks(&cards.Card{Title: "Ticket #1: VPN drops"})
	header := blocks[0].(*slack.HeaderBlock)
	if len(blocks) != 1 || header.Text.Text != "Ticket #1: VPN drops" {
		t.Errorf("unexpected blocks %#v", blocks)
	}
}
