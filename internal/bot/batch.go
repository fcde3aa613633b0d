package bot

import (
	"FileVaultBot/internal/media"
	"FileVaultBot/internal/session"
	"FileVaultBot/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) cmdBatch(msg *tgbotapi.Message) {
	_, err := b.sessions.Start(msg.From.ID, msg.Chat.ID)
	switch {
	case err == nil:
		// Start already sent the status message.
	case errors.Is(err, session.ErrSessionActive):
		b.reply(msg, "⚠️ You already have an active batch session. Finish it with /done or discard it with /cancel\\_batch.")
	default:
		log.Printf("bot: batch start for %d failed: %v", msg.From.ID, err)
		b.reply(msg, "❌ Could not start the batch session, please try again.")
	}
}

func (b *Bot) cmdAddDesc(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(msg, "Usage: `/adddesc <description>`")
		return
	}
	if err := b.sessions.SetDescription(msg.From.ID, text); err != nil {
		b.replySessionErr(msg, err)
		return
	}
	b.reply(msg, "✅ Description saved.")
}

func (b *Bot) cmdSetAutoDel(msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.reply(msg, "Usage: `/setautodel <minutes>` (0 disables)")
		return
	}
	minutes, err := strconv.Atoi(arg)
	if err != nil || minutes < 0 || minutes > 10080 {
		b.reply(msg, "⚠️ Minutes must be a number between 0 and 10080 (one week).")
		return
	}
	if err := b.sessions.SetAutoDelete(msg.From.ID, minutes); err != nil {
		b.replySessionErr(msg, err)
		return
	}
	if minutes == 0 {
		b.reply(msg, "✅ Auto-delete disabled for this batch.")
		return
	}
	b.reply(msg, fmt.Sprintf("✅ Delivered copies of this batch will be removed after %d minute(s).", minutes))
}

func (b *Bot) cmdDone(ctx context.Context, msg *tgbotapi.Message) {
	summary, err := b.sessions.Finalize(ctx, msg.From.ID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession):
			b.reply(msg, "⚠️ No active batch session. Start one with /batch.")
		case errors.Is(err, session.ErrEmptyBatch):
			b.reply(msg, "⚠️ The batch is empty. Send some files first, or discard it with /cancel\\_batch.")
		default:
			log.Printf("bot: batch finalize for %d failed: %v", msg.From.ID, err)
			b.reply(msg, "❌ Could not save the batch, your files are still in the session. Try /done again.")
		}
		return
	}
	b.reply(msg, fmt.Sprintf(
		"✅ *Batch Created!*\n\n"+
			"• Files: `%d`\n"+
			"• Took: %s\n\n"+
			"🔗 Share link:\n`%s`",
		summary.FileCount, utils.FormatDuration(summary.Elapsed), summary.Link))
}

func (b *Bot) cmdCancelBatch(msg *tgbotapi.Message) {
	if err := b.sessions.Cancel(msg.From.ID); err != nil {
		b.replySessionErr(msg, err)
		return
	}
	b.reply(msg, "🗑 Batch session discarded. Nothing was saved.")
}

// handleSessionMedia feeds bare admin media into the owner's active session.
// Media sent without a session is ignored so admin chats stay quiet.
func (b *Bot) handleSessionMedia(msg *tgbotapi.Message) {
	desc, err := media.Classify(msg)
	if err != nil {
		return
	}
	if desc.Size > b.maxFileSize() {
		b.reply(msg, fmt.Sprintf("⚠️ File too large, the limit is %s.", utils.HumanBytes(b.maxFileSize())))
		return
	}

	count, err := b.sessions.AddFile(msg.From.ID, msg.Chat.ID, msg.MessageID, desc)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return
		}
		log.Printf("bot: session add for %d failed: %v", msg.From.ID, err)
		b.reply(msg, "❌ Could not store this file, it was *not* added to the batch. Send it again.")
		return
	}
	log.Printf("bot: session of %d holds %d file(s)", msg.From.ID, count)
}

func (b *Bot) replySessionErr(msg *tgbotapi.Message, err error) {
	if errors.Is(err, session.ErrNoSession) {
		b.reply(msg, "⚠️ No active batch session. Start one with /batch.")
		return
	}
	log.Printf("bot: session command for %d failed: %v", msg.From.ID, err)
	b.reply(msg, "❌ Something went wrong, please try again.")
}
