// Package api provides handlers for external APIs and interfaces
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/abelzeko/water-quality-bot/internal/classifier"
	"github.com/abelzeko/water-quality-bot/internal/repository"
	"github.com/abelzeko/water-quality-bot/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "Available commands:\n" +
	"/start - Start the bot\n" +
	"/check <pH> <TDS> <Hardness> <Nitrate> [location] - Assess a water sample\n" +
	"/predict <pH> <TDS> <Hardness> <Nitrate> - Ask the classifier only\n" +
	"/last - Show your last assessment\n" +
	"/dataset - Show recent records and send the dataset as CSV\n" +
	"/remove <location>[, <location>...] - Remove records for locations\n" +
	"/import <url> - Import readings from an HTML lab report\n" +
	"/help - Show this help message\n\n" +
	"You can also just describe your test results in plain words."

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	useCase  *usecases.QualityUseCase
	sessions *usecases.Sessions
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, useCase *usecases.QualityUseCase) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramBot{
		bot:      bot,
		useCase:  useCase,
		sessions: usecases.NewSessions(),
	}, nil
}

// Start begins listening for and handling Telegram messages
func (t *TelegramBot) Start() {
	log.Printf("Authorized on Telegram account %s", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	log.Println("Bot is now listening for messages...")

	for update := range updates {
		if update.Message == nil {
			continue
		}

		log.Printf("Received message from %s (ID: %d): %s",
			update.Message.From.UserName,
			update.Message.From.ID,
			update.Message.Text)

		t.handleMessage(update)
	}
}

// handleMessage processes a Telegram message update
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")
	session := t.sessions.Get(update.Message.Chat.ID)

	switch {
	case update.Message.IsCommand():
		t.handleCommand(update.Message, session, &msg)
	default:
		t.handleNonCommand(update.Message, session, &msg)
	}

	if msg.Text == "" {
		return
	}
	log.Printf("Sending response to user %s", update.Message.From.UserName)
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(message *tgbotapi.Message, session *usecases.Session, msg *tgbotapi.MessageConfig) {
	args := message.CommandArguments()

	switch message.Command() {
	case "start":
		log.Printf("Handling /start command for user %s", message.From.UserName)
		msg.Text = "Welcome to the Water Quality Bot! Use /check to assess a sample or /help for more information."

	case "help":
		log.Printf("Handling /help command for user %s", message.From.UserName)
		msg.Text = helpText

	case "check":
		log.Printf("Handling /check command with args '%s' for user %s", args, message.From.UserName)
		msg.Text = CheckReply(t.useCase, session, args)

	case "predict":
		log.Printf("Handling /predict command with args '%s' for user %s", args, message.From.UserName)
		msg.Text = PredictReply(t.useCase, session, args)

	case "last":
		if session.LastAssessment == nil {
			msg.Text = "You have not checked a sample yet. Use /check first."
			return
		}
		msg.Text = t.useCase.FormatAssessment(*session.LastAssessment)

	case "dataset":
		log.Printf("Handling /dataset command for user %s", message.From.UserName)
		t.handleDatasetCommand(message.Chat.ID, msg)

	case "remove":
		log.Printf("Handling /remove command with args '%s' for user %s", args, message.From.UserName)
		msg.Text = RemoveReply(t.useCase, args)

	case "import":
		log.Printf("Handling /import command with args '%s' for user %s", args, message.From.UserName)
		msg.Text = ImportReply(t.useCase, session, args)

	default:
		log.Printf("Received unknown command /%s from user %s", message.Command(), message.From.UserName)
		msg.Text = "Unknown command. Use /help to see available commands."
	}
}

// handleDatasetCommand shows recent records and sends the full dataset as a document
func (t *TelegramBot) handleDatasetCommand(chatID int64, msg *tgbotapi.MessageConfig) {
	records, err := t.useCase.Dataset()
	if errors.Is(err, repository.ErrDatasetNotFound) {
		msg.Text = "No dataset found yet. Run an analysis first."
		return
	}
	if err != nil {
		msg.Text = "Error reading the dataset. Please try again later."
		log.Printf("Error reading dataset: %v", err)
		return
	}

	var buf bytes.Buffer
	if err := t.useCase.ExportCSV(&buf, nil); err != nil {
		msg.Text = "Error exporting the dataset. Please try again later."
		log.Printf("Error exporting dataset: %v", err)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "water_data.csv", Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("📥 Dataset with %d records", len(records))
	if _, err := t.bot.Send(doc); err != nil {
		log.Printf("Error sending dataset document: %v", err)
	}

	msg.Text = usecases.FormatDataset(records, 10)
}

// handleNonCommand processes regular messages
func (t *TelegramBot) handleNonCommand(message *tgbotapi.Message, session *usecases.Session, msg *tgbotapi.MessageConfig) {
	log.Printf("Received non-command message from user %s: %s", message.From.UserName, message.Text)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	response, err := t.useCase.HandleNaturalLanguageQuery(ctx, session, message.Text)
	if err != nil {
		msg.Text = "Error processing your message. Please try again later."
		log.Printf("Error handling free-text message: %v", err)
		return
	}
	msg.Text = response
}

// CheckReply evaluates and records a reading given as command arguments
func CheckReply(uc *usecases.QualityUseCase, session *usecases.Session, args string) string {
	reading, err := ParseReadingArgs(args)
	if err != nil {
		return fmt.Sprintf("%v\nExample: /check 7.2 310 140 12 Garden well", err)
	}

	a, err := uc.Evaluate(session, reading)
	if err != nil {
		log.Printf("Error evaluating reading: %v", err)
		return uc.FormatAssessment(a) + "\n\n⚠️ The result could not be saved to the dataset."
	}
	return uc.FormatAssessment(a)
}

// PredictReply runs the classifier on a reading given as command arguments
func PredictReply(uc *usecases.QualityUseCase, session *usecases.Session, args string) string {
	reading, err := ParseReadingArgs(args)
	if err != nil {
		return fmt.Sprintf("%v\nExample: /predict 7.2 310 140 12", err)
	}

	label, err := uc.Predict(session, reading)
	if errors.Is(err, classifier.ErrModelUnavailable) {
		return "🤖 The classifier is unavailable: no trained model has been loaded."
	}
	if err != nil {
		log.Printf("Error predicting: %v", err)
		return "Error running the classifier. Please try again later."
	}
	return fmt.Sprintf("🤖 Classifier prediction: %s", label)
}

// RemoveReply removes dataset rows for comma-separated locations
func RemoveReply(uc *usecases.QualityUseCase, args string) string {
	var locations []string
	for _, l := range strings.Split(args, ",") {
		if l = strings.TrimSpace(l); l != "" {
			locations = append(locations, l)
		}
	}
	if len(locations) == 0 {
		available, err := uc.Locations()
		if err != nil || len(available) == 0 {
			return "Please specify a location. Example: /remove Garden well"
		}
		return "Please specify a location. Known locations:\n• " + strings.Join(available, "\n• ")
	}

	n, err := uc.RemoveLocations(locations)
	if errors.Is(err, repository.ErrDatasetNotFound) {
		return "No dataset found yet. Run an analysis first."
	}
	if err != nil {
		log.Printf("Error removing locations: %v", err)
		return "Error updating the dataset. Please try again later."
	}
	return fmt.Sprintf("Removed %d records ✅", n)
}

// ImportReply imports readings from an HTML lab report URL
func ImportReply(uc *usecases.QualityUseCase, session *usecases.Session, args string) string {
	url := strings.TrimSpace(args)
	if url == "" {
		return "Please specify a report URL. Example: /import https://lab.example.com/report"
	}

	assessments, err := uc.ImportLabReport(session, url)
	if err != nil {
		log.Printf("Error importing lab report: %v", err)
		return fmt.Sprintf("Could not import the lab report: %v", err)
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Imported %d readings:\n\n", len(assessments)))
	for _, a := range assessments {
		location := a.Reading.Location
		if location == "" {
			location = "(no location)"
		}
		result.WriteString(fmt.Sprintf("• %s: score %d %s %s\n", location, a.Score, usecases.Gauge(a.Score), a.Band))
	}
	return strings.TrimRight(result.String(), "\n")
}
