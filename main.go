package main

import (
	"FileVaultBot/config"
	"FileVaultBot/internal/bot"
	"FileVaultBot/internal/repo"
	"FileVaultBot/internal/storage"
	"FileVaultBot/internal/store"
	"FileVaultBot/router"
	"context"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	config.InitConfig()
	repo.InitMysql()
	repo.InitRedis()
	storage.InitMinio()

	api, err := tgbotapi.NewBotAPI(config.AppConfig.BotToken)
	if err != nil {
		log.Fatalln("telegram auth error:", err)
	}
	if config.AppConfig.BotUsername == "" {
		config.AppConfig.BotUsername = api.Self.UserName
	}

	st := store.New(repo.Db, repo.Redis, config.AppConfig.CacheTTL)
	b := bot.New(api, st)

	go func() {
		r := router.SetupRouter(st)
		if err := r.Run(config.AppConfig.AdminAPIAddr); err != nil {
			log.Fatalln("admin api error:", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	b.Run(ctx)
	log.Println("bot stopped")
}
