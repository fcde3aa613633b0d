// Package bot is the Telegram-facing surface: the long-poll update loop and
// the command handlers that drive sessions, retrieval and administration.
package bot

import (
	"FileVaultBot/config"
	"FileVaultBot/internal/autodelete"
	"FileVaultBot/internal/channel"
	"FileVaultBot/internal/dispatch"
	"FileVaultBot/internal/session"
	"FileVaultBot/internal/store"
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

type Bot struct {
	api        *tgbotapi.BotAPI
	channel    channel.Channel
	store      *store.Store
	sessions   *session.Manager
	dispatcher *dispatch.Dispatcher
	scheduler  *autodelete.Scheduler
}

// New wires the bot and its core services around an authorized API client.
func New(api *tgbotapi.BotAPI, st *store.Store) *Bot {
	ch := channel.NewTelegram(api)
	scheduler := autodelete.New(ch, st)
	sessions := session.NewManager(ch, st, config.AppConfig.SessionIdleTimeout)

	dispatcher := dispatch.New(st, ch, scheduler,
		rate.NewLimiter(rate.Limit(config.AppConfig.BatchSendRate), config.AppConfig.BatchSendBurst))
	dispatcher.ForceSubChannelID = config.AppConfig.ForceSubChannelID
	dispatcher.DefaultAutoDelete = config.DefaultAutoDelete

	return &Bot{
		api:        api,
		channel:    ch,
		store:      st,
		sessions:   sessions,
		dispatcher: dispatcher,
		scheduler:  scheduler,
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	log.Printf("bot %s started", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.sessions.Stop()
			b.scheduler.Stop()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bot: handler panic: %v", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	if err := b.store.UpsertUser(ctx, msg.From.ID, msg.From.UserName); err != nil {
		log.Printf("bot: upsert user %d failed: %v", msg.From.ID, err)
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Bare media from an admin feeds the active batch session, if any.
	if config.IsAdmin(msg.From.ID) {
		b.handleSessionMedia(msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.cmdStart(ctx, msg)
	case "help":
		b.cmdHelp(msg)
	case "about":
		b.cmdAbout(msg)
	case "batch":
		b.requireAdmin(msg, b.cmdBatch)
	case "adddesc":
		b.requireAdmin(msg, b.cmdAddDesc)
	case "setautodel":
		b.requireAdmin(msg, b.cmdSetAutoDel)
	case "done":
		b.requireAdmin(msg, func(m *tgbotapi.Message) { b.cmdDone(ctx, m) })
	case "cancel_batch":
		b.requireAdmin(msg, b.cmdCancelBatch)
	case "upload":
		b.requireAdmin(msg, func(m *tgbotapi.Message) { b.cmdUpload(ctx, m) })
	case "auto_del":
		b.requireAdmin(msg, b.cmdAutoDel)
	case "stats":
		b.requireAdmin(msg, func(m *tgbotapi.Message) { b.cmdStats(ctx, m) })
	case "broadcast":
		b.requireAdmin(msg, b.cmdBroadcast)
	}
}

func (b *Bot) requireAdmin(msg *tgbotapi.Message, handler func(*tgbotapi.Message)) {
	if !config.IsAdmin(msg.From.ID) {
		b.reply(msg, "⚠️ You are not authorized to use this command!")
		return
	}
	handler(msg)
}

// reply sends a markdown reply to the message's chat.
func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(out); err != nil {
		log.Printf("bot: reply failed: %v", err)
	}
}

func (b *Bot) replyWithMarkup(msg *tgbotapi.Message, text string, markup tgbotapi.InlineKeyboardMarkup) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = markup
	if _, err := b.api.Send(out); err != nil {
		log.Printf("bot: reply failed: %v", err)
	}
}
