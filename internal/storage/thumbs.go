package storage

import (
	"FileVaultBot/internal/store"
	"context"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MirrorThumbnail fetches a Telegram thumbnail and stores it in MinIO,
// recording the object name on the file. Best effort: failures are logged
// and never block the upload that triggered the mirror.
func MirrorThumbnail(bot *tgbotapi.BotAPI, st *store.Store, token, thumbFileID string) {
	if Minio == nil || thumbFileID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	file, err := bot.GetFile(tgbotapi.FileConfig{FileID: thumbFileID})
	if err != nil {
		log.Printf("thumbnail: get file %s failed: %v", thumbFileID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(bot.Token), nil)
	if err != nil {
		log.Printf("thumbnail: build request failed: %v", err)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("thumbnail: download failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("thumbnail: download status %d", resp.StatusCode)
		return
	}

	object := "thumbs/" + token + ".jpg"
	if err := Minio.PutObject(ctx, object, resp.Body, resp.ContentLength, "image/jpeg"); err != nil {
		log.Printf("thumbnail: store %s failed: %v", object, err)
		return
	}
	if err := st.SetThumbObject(ctx, token, object); err != nil {
		log.Printf("thumbnail: record %s failed: %v", object, err)
	}
}
