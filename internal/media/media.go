// Package media classifies incoming Telegram messages into the closed set of
// media kinds the bot stores. Classification happens once, at the Delivery
// Channel boundary; the rest of the code only sees Descriptor values.
package media

import (
	"errors"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrUnsupported rejects messages carrying no storable media.
var ErrUnsupported = errors.New("unsupported media kind")

type Kind string

const (
	KindDocument  Kind = "document"
	KindVideo     Kind = "video"
	KindAudio     Kind = "audio"
	KindPhoto     Kind = "photo"
	KindVoice     Kind = "voice"
	KindVideoNote Kind = "video_note"
	KindAnimation Kind = "animation"
	KindSticker   Kind = "sticker"
	KindUnknown   Kind = "unknown"
)

// Descriptor is the decoded metadata of one uploaded media item.
type Descriptor struct {
	Kind           Kind
	TelegramFileID string
	Name           string
	Size           int64
	MimeType       string
	// ThumbFileID is set when the item carries a thumbnail worth mirroring.
	ThumbFileID string
}

// Classify decodes the media payload of a message. Messages without any
// recognized media return ErrUnsupported.
func Classify(msg *tgbotapi.Message) (Descriptor, error) {
	stamp := msg.Time().Format("20060102_150405")

	switch {
	case msg.Document != nil:
		d := Descriptor{
			Kind:           KindDocument,
			TelegramFileID: msg.Document.FileID,
			Name:           msg.Document.FileName,
			Size:           int64(msg.Document.FileSize),
			MimeType:       msg.Document.MimeType,
		}
		if d.Name == "" {
			d.Name = "document_" + stamp
		}
		if msg.Document.Thumbnail != nil {
			d.ThumbFileID = msg.Document.Thumbnail.FileID
		}
		return clean(d), nil
	case msg.Video != nil:
		d := Descriptor{
			Kind:           KindVideo,
			TelegramFileID: msg.Video.FileID,
			Name:           msg.Video.FileName,
			Size:           int64(msg.Video.FileSize),
			MimeType:       msg.Video.MimeType,
		}
		if d.Name == "" {
			d.Name = "video_" + stamp + ".mp4"
		}
		return clean(d), nil
	case msg.Audio != nil:
		d := Descriptor{
			Kind:           KindAudio,
			TelegramFileID: msg.Audio.FileID,
			Name:           msg.Audio.FileName,
			Size:           int64(msg.Audio.FileSize),
			MimeType:       msg.Audio.MimeType,
		}
		if d.Name == "" {
			d.Name = "audio_" + stamp
		}
		return clean(d), nil
	case len(msg.Photo) > 0:
		// Telegram sends several sizes; keep the largest.
		largest := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.FileSize > largest.FileSize {
				largest = p
			}
		}
		return clean(Descriptor{
			Kind:           KindPhoto,
			TelegramFileID: largest.FileID,
			Name:           "photo_" + stamp + ".jpg",
			Size:           int64(largest.FileSize),
		}), nil
	case msg.Voice != nil:
		return clean(Descriptor{
			Kind:           KindVoice,
			TelegramFileID: msg.Voice.FileID,
			Name:           "voice_" + stamp + ".ogg",
			Size:           int64(msg.Voice.FileSize),
			MimeType:       msg.Voice.MimeType,
		}), nil
	case msg.VideoNote != nil:
		return clean(Descriptor{
			Kind:           KindVideoNote,
			TelegramFileID: msg.VideoNote.FileID,
			Name:           "video_note_" + stamp + ".mp4",
			Size:           int64(msg.VideoNote.FileSize),
		}), nil
	case msg.Animation != nil:
		d := Descriptor{
			Kind:           KindAnimation,
			TelegramFileID: msg.Animation.FileID,
			Name:           msg.Animation.FileName,
			Size:           int64(msg.Animation.FileSize),
			MimeType:       msg.Animation.MimeType,
		}
		if d.Name == "" {
			d.Name = "animation_" + stamp + ".gif"
		}
		return clean(d), nil
	case msg.Sticker != nil:
		return clean(Descriptor{
			Kind:           KindSticker,
			TelegramFileID: msg.Sticker.FileID,
			Name:           "sticker_" + stamp + ".webp",
			Size:           int64(msg.Sticker.FileSize),
		}), nil
	}
	return Descriptor{}, ErrUnsupported
}

func clean(d Descriptor) Descriptor {
	d.Name = CleanFilename(d.Name)
	return d
}

// CleanFilename strips characters unsafe for display or filesystems and
// bounds the length at 60 runes.
func CleanFilename(name string) string {
	const invalid = `<>:"/\|?*`
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalid, r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" {
		return "file"
	}
	if len([]rune(name)) > 60 {
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		runes := []rune(base)
		if len(runes) > 56 {
			runes = runes[:56]
		}
		if ext != "" {
			name = string(runes) + "..." + ext
		} else {
			name = string(runes)
		}
	}
	return name
}

// ParseKind maps a stored kind string back to the enumeration, defaulting to
// unknown for anything unrecognized.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindDocument, KindVideo, KindAudio, KindPhoto, KindVoice,
		KindVideoNote, KindAnimation, KindSticker:
		return Kind(s)
	default:
		return KindUnknown
	}
}

// Label returns a short human-readable label for status texts.
func (k Kind) Label() string {
	if k == KindUnknown {
		return "file"
	}
	return strings.ReplaceAll(string(k), "_", " ")
}

func (k Kind) String() string { return string(k) }
