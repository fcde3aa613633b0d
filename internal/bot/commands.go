package bot

import (
	"FileVaultBot/config"
	"FileVaultBot/internal/dispatch"
	"FileVaultBot/internal/store"
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "📚 *Bot Commands & Usage*\n\n" +
	"👥 *User Commands:*\n" +
	"• /start — start the bot\n" +
	"• /help — show this help message\n" +
	"• /about — about the bot\n\n" +
	"👮‍♂️ *Admin Commands:*\n" +
	"• /upload — upload a file (reply to it)\n" +
	"• /batch — start a batch upload session\n" +
	"• /adddesc — describe the current batch\n" +
	"• /setautodel — auto-delete for the current batch\n" +
	"• /done — finish the batch\n" +
	"• /cancel\\_batch — cancel the batch\n" +
	"• /auto\\_del — set the default auto-delete time\n" +
	"• /stats — bot statistics\n" +
	"• /broadcast — broadcast a message (reply to it)\n\n" +
	"💡 Delivered copies of auto-delete files are removed after the set time; " +
	"the stored originals are kept."

const aboutText = "🤖 *FileVaultBot*\n\n" +
	"Files are stored by reference in a private channel and shared through " +
	"deep links, one by one or in batches."

func (b *Bot) cmdStart(ctx context.Context, msg *tgbotapi.Message) {
	payload := msg.CommandArguments()
	if payload == "" {
		b.replyWithMarkup(msg, fmt.Sprintf(
			"👋 Hello, %s!\n\nSend me a deep link to receive a file, or use the buttons below.",
			msg.From.FirstName), startKeyboard())
		return
	}
	b.retrieve(ctx, msg, payload)
}

func (b *Bot) retrieve(ctx context.Context, msg *tgbotapi.Message, payload string) {
	res, err := b.dispatcher.Resolve(ctx, msg.From.ID, msg.Chat.ID, payload)
	switch {
	case err == nil:
		if res.Failed > 0 {
			log.Printf("bot: retrieval %s delivered %d/%d", payload, res.Delivered, res.Attempted)
		}
	case errors.Is(err, dispatch.ErrNotSubscribed):
		b.replyWithMarkup(msg,
			"*⚠️ You must join our channel to use this bot!*\n\nPlease join and try again.",
			forceSubKeyboard())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrEmptyBatch):
		b.reply(msg, "❌ File not found or has been deleted!")
	default:
		log.Printf("bot: retrieval %s failed: %v", payload, err)
		b.reply(msg, "❌ Delivery failed, please try again later.")
	}
}

func (b *Bot) cmdHelp(msg *tgbotapi.Message) {
	b.replyWithMarkup(msg, helpText, homeKeyboard())
}

func (b *Bot) cmdAbout(msg *tgbotapi.Message) {
	b.replyWithMarkup(msg, aboutText, homeKeyboard())
}

func startKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Help", "help"),
			tgbotapi.NewInlineKeyboardButtonData("About", "about"),
		),
	}
	if link := config.AppConfig.ForceSubLink; link != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Channel", link),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func homeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("« Back", "home"),
		),
	)
}

func forceSubKeyboard() tgbotapi.InlineKeyboardMarkup {
	link := config.AppConfig.ForceSubLink
	if link == "" {
		link = "https://t.me/" + config.AppConfig.BotUsername
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📢 Join Channel", link),
		),
	)
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	var text string
	var markup tgbotapi.InlineKeyboardMarkup
	switch cq.Data {
	case "help":
		text, markup = helpText, homeKeyboard()
	case "about":
		text, markup = aboutText, homeKeyboard()
	case "home":
		text = fmt.Sprintf("👋 Hello, %s!\n\nSend me a deep link to receive a file, or use the buttons below.",
			cq.From.FirstName)
		markup = startKeyboard()
	default:
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			log.Printf("bot: callback answer failed: %v", err)
		}
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(cq.Message.Chat.ID, cq.Message.MessageID, text, markup)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("bot: callback edit failed: %v", err)
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Printf("bot: callback answer failed: %v", err)
	}
}
