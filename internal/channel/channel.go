// Package channel wraps the messaging platform. Uploaded files live in a
// fixed administrative storage channel and are addressed by message id only;
// the rest of the system never touches raw file bytes.
package channel

// Channel is the delivery-channel contract consumed by the session manager
// and the retrieval dispatcher.
type Channel interface {
	// ForwardIntoChannel forwards an original upload into the storage
	// channel and returns the resulting channel message id.
	ForwardIntoChannel(fromChatID int64, messageID int) (int, error)

	// CopyFromChannel copies a stored channel message into a requester's
	// chat and returns the new message id.
	CopyFromChannel(channelMessageID int, targetChatID int64) (int, error)

	DeleteMessage(chatID int64, messageID int) error
	EditMessage(chatID int64, messageID int, text string) error
	SendMessage(chatID int64, text string) (int, error)

	// IsChannelMember reports whether the user has joined the given channel.
	IsChannelMember(channelID, userID int64) (bool, error)
}
