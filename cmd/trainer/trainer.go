package main

import (
	"flag"
	"log"
	"os"

	"github.com/abelzeko/water-quality-bot/internal/app"
	"github.com/abelzeko/water-quality-bot/internal/config"
	"github.com/robfig/cron/v3"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Water Quality Model Trainer...")

	configPath := flag.String("config", "", "Path to YAML config file")
	once := flag.Bool("once", false, "Train once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application, err := app.New(cfg, false)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	opts := application.TrainingOptions()

	// Train immediately on startup
	if _, err := application.UseCase.RetrainModel(opts); err != nil {
		log.Printf("Initial training failed: %v", err)
		if *once {
			os.Exit(1)
		}
	}
	if *once {
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Model.Schedule, func() {
		if _, err := application.UseCase.RetrainModel(opts); err != nil {
			log.Printf("Scheduled training failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to set up cron job: %v", err)
	}

	log.Printf("Trainer has been scheduled with %q", cfg.Model.Schedule)
	c.Start()

	// Keep the program running
	select {}
}
