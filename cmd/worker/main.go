package main

import (
	"FileVaultBot/config"
	"FileVaultBot/internal/repo"
	"FileVaultBot/internal/store"
	"FileVaultBot/internal/worker"
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

	api, err := tgbotapi.NewBotAPI(config.AppConfig.BotToken)
	if err != nil {
		log.Fatalln("telegram auth error:", err)
	}

	st := store.New(repo.Db, repo.Redis, config.AppConfig.CacheTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.RunBroadcastWorker(ctx, api, st); err != nil {
		log.Fatalln("broadcast worker error:", err)
	}
	log.Println("broadcast worker stopped")
}
