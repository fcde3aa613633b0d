package bot

import (
	"FileVaultBot/config"
	"FileVaultBot/internal/media"
	"FileVaultBot/internal/storage"
	"FileVaultBot/internal/task"
	"FileVaultBot/model"
	"FileVaultBot/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) maxFileSize() int64 {
	return config.AppConfig.MaxFileSize
}

// cmdUpload stores a single file: the admin replies /upload to a media
// message and gets a shareable deep link back.
func (b *Bot) cmdUpload(ctx context.Context, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		b.reply(msg, "Usage: reply `/upload` to the file you want to share.")
		return
	}

	desc, err := media.Classify(msg.ReplyToMessage)
	if err != nil {
		if errors.Is(err, media.ErrUnsupported) {
			b.reply(msg, "⚠️ That message carries no supported media.")
			return
		}
		log.Printf("bot: classify upload from %d failed: %v", msg.From.ID, err)
		b.reply(msg, "❌ Could not read that file, please try again.")
		return
	}
	if desc.Size > b.maxFileSize() {
		b.reply(msg, fmt.Sprintf("⚠️ File too large, the limit is %s.", utils.HumanBytes(b.maxFileSize())))
		return
	}

	statusID, err := b.channel.SendMessage(msg.Chat.ID, "⏳ Storing file...")
	if err != nil {
		log.Printf("bot: upload status message failed: %v", err)
	}

	channelMessageID, err := b.channel.ForwardIntoChannel(msg.Chat.ID, msg.ReplyToMessage.MessageID)
	if err != nil {
		log.Printf("bot: forward upload from %d failed: %v", msg.From.ID, err)
		b.editOrReply(msg, statusID, "❌ Could not store the file, please try again.")
		return
	}

	minutes := config.DefaultAutoDelete()
	file := &model.File{
		Token:             utils.GetToken(),
		TelegramFileID:    desc.TelegramFileID,
		Name:              desc.Name,
		Size:              desc.Size,
		Kind:              string(desc.Kind),
		UploaderID:        msg.From.ID,
		ChannelMessageID:  channelMessageID,
		AutoDelete:        minutes > 0,
		AutoDeleteMinutes: minutes,
	}
	token, err := b.store.CreateFile(ctx, file)
	if err != nil {
		log.Printf("bot: persist upload from %d failed: %v", msg.From.ID, err)
		b.editOrReply(msg, statusID, "❌ Could not save the file record, please try again.")
		return
	}

	if desc.ThumbFileID != "" {
		go storage.MirrorThumbnail(b.api, b.store, token, desc.ThumbFileID)
	}

	text := fmt.Sprintf(
		"✅ *File Stored!*\n\n"+
			"• Name: `%s`\n"+
			"• Size: %s\n"+
			"• Type: %s\n\n"+
			"🔗 Share link:\n`%s`",
		desc.Name, utils.HumanBytes(desc.Size), desc.Kind.Label(), utils.DeepLink(token))
	b.editOrReply(msg, statusID, text)
}

// cmdAutoDel adjusts the default auto-delete time applied to new single
// uploads. Zero disables it.
func (b *Bot) cmdAutoDel(msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		current := config.DefaultAutoDelete()
		if current == 0 {
			b.reply(msg, "Auto-delete is currently *off*.\nUsage: `/auto_del <minutes>` (0 disables, max 10080)")
			return
		}
		b.reply(msg, fmt.Sprintf("Auto-delete is currently `%d` minute(s).\nUsage: `/auto_del <minutes>` (0 disables, max 10080)", current))
		return
	}
	minutes, err := strconv.Atoi(arg)
	if err != nil || minutes < 0 || minutes > 10080 {
		b.reply(msg, "⚠️ Minutes must be a number between 0 and 10080 (one week).")
		return
	}
	config.SetDefaultAutoDelete(minutes)
	if minutes == 0 {
		b.reply(msg, "✅ Auto-delete disabled for new uploads.")
		return
	}
	b.reply(msg, fmt.Sprintf("✅ Delivered copies of new uploads will be removed after %d minute(s).", minutes))
}

func (b *Bot) cmdStats(ctx context.Context, msg *tgbotapi.Message) {
	stats, err := b.store.GetStats(ctx)
	if err != nil {
		log.Printf("bot: stats failed: %v", err)
		b.reply(msg, "❌ Could not load statistics.")
		return
	}
	text := fmt.Sprintf(
		"📊 *Bot Statistics*\n\n"+
			"• Users: `%d`\n"+
			"• Files: `%d`\n"+
			"• Batches: `%d`\n"+
			"• Stored size: %s\n"+
			"• File downloads: `%d`\n"+
			"• Batch downloads: `%d`\n"+
			"• Auto-delete files: `%d`\n"+
			"• Active sessions: `%d`\n"+
			"• Pending deletions: `%d`",
		stats.TotalUsers, stats.TotalFiles, stats.TotalBatches,
		utils.HumanBytes(stats.TotalSize), stats.TotalDownloads,
		stats.BatchDownloads, stats.AutoDeleteFiles,
		b.sessions.ActiveCount(), b.scheduler.Pending())
	b.reply(msg, text)
}

// cmdBroadcast enqueues the replied-to message for fan-out to every known
// user. The heavy lifting happens in the worker binary.
func (b *Bot) cmdBroadcast(msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		b.reply(msg, "Usage: reply `/broadcast` to the message you want to send to everyone.")
		return
	}
	t, err := task.CreateBroadcastTask(msg.From.ID, msg.Chat.ID, msg.ReplyToMessage.MessageID)
	if err != nil {
		log.Printf("bot: broadcast enqueue by %d failed: %v", msg.From.ID, err)
		b.reply(msg, "❌ Could not enqueue the broadcast, please try again.")
		return
	}
	b.reply(msg, fmt.Sprintf("📣 Broadcast `#%d` queued. You will get a summary when it finishes.", t.ID))
}

// editOrReply edits the status message when one was sent, otherwise replies.
func (b *Bot) editOrReply(msg *tgbotapi.Message, statusID int, text string) {
	if statusID != 0 {
		if err := b.channel.EditMessage(msg.Chat.ID, statusID, text); err == nil {
			return
		}
	}
	b.reply(msg, text)
}
