package channel

import (
	"FileVaultBot/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram implements Channel on top of the Bot API.
type Telegram struct {
	bot       *tgbotapi.BotAPI
	channelID int64
}

// NewTelegram creates the Telegram delivery channel around an existing bot
// client and the configured storage channel.
func NewTelegram(bot *tgbotapi.BotAPI) *Telegram {
	return &Telegram{
		bot:       bot,
		channelID: config.AppConfig.DBChannelID,
	}
}

// ForwardIntoChannel forwards a message into the storage channel.
func (t *Telegram) ForwardIntoChannel(fromChatID int64, messageID int) (int, error) {
	forwarded, err := t.bot.Send(tgbotapi.NewForward(t.channelID, fromChatID, messageID))
	if err != nil {
		return 0, err
	}
	return forwarded.MessageID, nil
}

// CopyFromChannel copies a stored message into the target chat.
func (t *Telegram) CopyFromChannel(channelMessageID int, targetChatID int64) (int, error) {
	copied, err := t.bot.CopyMessage(tgbotapi.NewCopyMessage(targetChatID, t.channelID, channelMessageID))
	if err != nil {
		return 0, err
	}
	return copied.MessageID, nil
}

// DeleteMessage removes a message from a chat.
func (t *Telegram) DeleteMessage(chatID int64, messageID int) error {
	_, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// EditMessage replaces the text of an existing message.
func (t *Telegram) EditMessage(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.bot.Send(edit)
	return err
}

// SendMessage sends a plain text message and returns its id.
func (t *Telegram) SendMessage(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := t.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// IsChannelMember checks membership for the force-subscribe gate.
func (t *Telegram) IsChannelMember(channelID, userID int64) (bool, error) {
	member, err := t.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: channelID,
			UserID: userID,
		},
	})
	if err != nil {
		return false, err
	}
	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	default:
		return false, nil
	}
}
