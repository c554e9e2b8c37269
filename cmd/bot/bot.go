package main

import (
	"flag"
	"log"
	"os"

	"github.com/abelzeko/water-quality-bot/internal/api"
	"github.com/abelzeko/water-quality-bot/internal/app"
	"github.com/abelzeko/water-quality-bot/internal/config"
	"github.com/robfig/cron/v3"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Water Quality Bot...")

	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Telegram.BotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	application, err := app.New(cfg, true)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	// Pick up models written by the trainer
	c := cron.New()
	_, err = c.AddFunc(cfg.Model.Schedule, func() {
		if err := application.UseCase.LoadModel(cfg.Model.Path); err != nil {
			log.Printf("Scheduled model reload: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to set up cron job: %v", err)
	}
	c.Start()
	defer c.Stop()

	telegramBot, err := api.NewTelegramBot(cfg.Telegram.BotToken, application.UseCase)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	telegramBot.Start()
}
