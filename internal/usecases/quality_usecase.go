// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/abelzeko/water-quality-bot/internal/classifier"
	"github.com/abelzeko/water-quality-bot/internal/entities"
	"github.com/abelzeko/water-quality-bot/internal/integration"
	"github.com/abelzeko/water-quality-bot/internal/integration/openai"
	"github.com/abelzeko/water-quality-bot/internal/repository"
	"github.com/abelzeko/water-quality-bot/internal/rules"
)

// QualityUseCase handles business logic related to water-quality assessments
type QualityUseCase struct {
	evaluator     *rules.Evaluator
	repo          repository.RecordRepository
	importer      *integration.LabReportImporter
	openAIService openai.OpenAIService

	mu    sync.RWMutex
	model *classifier.Forest
}

// NewQualityUseCase creates a new quality use case. importer and openAIService may be nil.
func NewQualityUseCase(evaluator *rules.Evaluator, repo repository.RecordRepository,
	importer *integration.LabReportImporter, openAIService openai.OpenAIService) *QualityUseCase {
	return &QualityUseCase{
		evaluator:     evaluator,
		repo:          repo,
		importer:      importer,
		openAIService: openAIService,
	}
}

// Evaluator returns the threshold evaluator in use
func (uc *QualityUseCase) Evaluator() *rules.Evaluator {
	return uc.evaluator
}

// SetModel swaps the classifier; nil puts the classifier into the unavailable state
func (uc *QualityUseCase) SetModel(f *classifier.Forest) {
	uc.mu.Lock()
	uc.model = f
	uc.mu.Unlock()
}

// Model returns the loaded classifier or ErrModelUnavailable
func (uc *QualityUseCase) Model() (*classifier.Forest, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	if uc.model == nil {
		return nil, classifier.ErrModelUnavailable
	}
	return uc.model, nil
}

// LoadModel loads the artifact at path. On failure the classifier stays
// unavailable and the error is returned for the caller to report.
func (uc *QualityUseCase) LoadModel(path string) error {
	f, err := classifier.Load(path)
	if err != nil {
		log.Printf("Classifier unavailable: %v", err)
		uc.SetModel(nil)
		return err
	}
	uc.SetModel(f)
	log.Printf("Loaded classifier from %s (%d trees, classes %v)", path, len(f.Trees), f.Classes)
	return nil
}

// Assess scores a reading and consults the classifier when one is loaded
func (uc *QualityUseCase) Assess(reading entities.Reading) entities.Assessment {
	a := uc.evaluator.Evaluate(reading)

	model, err := uc.Model()
	if err != nil {
		a.PredictionErr = err
		return a
	}
	label, err := model.PredictReading(reading)
	if err != nil {
		a.PredictionErr = err
		return a
	}
	a.Prediction = label
	return a
}

// Evaluate assesses a reading, records it in the session and appends it to the dataset
func (uc *QualityUseCase) Evaluate(session *Session, reading entities.Reading) (entities.Assessment, error) {
	log.Printf("Evaluating reading for location %q", reading.Location)
	a := uc.Assess(reading)
	if session != nil {
		session.remember(a)
	}

	if err := uc.repo.Append(a.Record()); err != nil {
		return a, fmt.Errorf("failed to save record: %w", err)
	}
	return a, nil
}

// Predict runs only the classifier. It never touches a missing model.
func (uc *QualityUseCase) Predict(session *Session, reading entities.Reading) (string, error) {
	model, err := uc.Model()
	if err != nil {
		return "", err
	}
	label, err := model.PredictReading(reading)
	if err != nil {
		return "", fmt.Errorf("failed to predict: %w", err)
	}
	if session != nil {
		r := reading
		session.LastReading = &r
	}
	return label, nil
}

// Dataset loads all records, recomputing score, band and element labels for
// rows stored without them
func (uc *QualityUseCase) Dataset() ([]entities.DatasetRecord, error) {
	records, err := uc.repo.Load()
	if err != nil {
		return nil, err
	}
	for i := range records {
		uc.evaluator.Complete(&records[i])
	}
	return records, nil
}

// Locations lists the distinct locations present in the dataset
func (uc *QualityUseCase) Locations() ([]string, error) {
	records, err := uc.repo.Load()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var locations []string
	for _, rec := range records {
		if rec.Location != "" && !seen[rec.Location] {
			seen[rec.Location] = true
			locations = append(locations, rec.Location)
		}
	}
	sort.Strings(locations)
	return locations, nil
}

// ExportCSV writes the dataset with the selected columns, all columns when none are given
func (uc *QualityUseCase) ExportCSV(w io.Writer, columns []string) error {
	if len(columns) == 0 {
		columns = repository.DatasetColumns
	}
	if err := repository.CheckColumns(columns, nil, repository.DatasetColumns); err != nil {
		return err
	}

	records, err := uc.Dataset()
	if err != nil {
		return err
	}
	return repository.WriteRecords(w, columns, records)
}

// RemoveLocations deletes every record for the given locations
func (uc *QualityUseCase) RemoveLocations(locations []string) (int, error) {
	log.Printf("Removing locations %v", locations)
	return uc.repo.RemoveLocations(locations)
}

// ImportLabReport fetches an HTML lab report and evaluates every reading in it
func (uc *QualityUseCase) ImportLabReport(session *Session, url string) ([]entities.Assessment, error) {
	if uc.importer == nil {
		return nil, errors.New("lab report import is not configured")
	}
	readings, err := uc.importer.Fetch(url)
	if err != nil {
		return nil, err
	}
	for _, r := range readings {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("lab report reading for %q: %w", r.Location, err)
		}
	}

	assessments := make([]entities.Assessment, 0, len(readings))
	for _, r := range readings {
		a, err := uc.Evaluate(session, r)
		if err != nil {
			return assessments, err
		}
		assessments = append(assessments, a)
	}
	log.Printf("Imported %d readings from %s", len(assessments), url)
	return assessments, nil
}

// HandleNaturalLanguageQuery interprets a user's free-text message using the AI service
// and returns an appropriate response string.
func (uc *QualityUseCase) HandleNaturalLanguageQuery(ctx context.Context, session *Session, query string) (string, error) {
	if uc.openAIService == nil {
		return "I don't understand. Use /help to see available commands.", nil
	}
	log.Printf("Interpreting natural language query: %s", query)

	agentResp, err := uc.openAIService.InterpretUserQuery(ctx, query)
	if err != nil {
		log.Printf("Error interpreting user query via OpenAI: %v", err)
		return "Sorry, I'm having trouble understanding right now. Please try again later or use /help.", nil
	}

	log.Printf("Agent response: Command='%s', Location='%s', Missing=%v",
		agentResp.CommandName, agentResp.Location, agentResp.MissingFields)

	switch agentResp.CommandName {
	case openai.CommandEvaluateReading:
		reading, err := agentResp.Reading()
		if err != nil {
			if agentResp.UserMessage != "" {
				return agentResp.UserMessage, nil
			}
			return fmt.Sprintf("I need a few more values: %v", err), nil
		}
		if err := reading.Validate(); err != nil {
			return fmt.Sprintf("Those numbers look wrong: %v", err), nil
		}
		a, err := uc.Evaluate(session, reading)
		if err != nil {
			log.Printf("Error saving evaluated reading: %v", err)
			return "", err
		}
		msg := agentResp.UserMessage
		if msg != "" {
			msg += "\n\n"
		}
		return msg + uc.FormatAssessment(a), nil
	case openai.CommandGeneralQuery:
		return agentResp.UserMessage, nil
	default:
		log.Printf("Agent returned unexpected command: %s", agentResp.CommandName)
		return "I'm not sure how to respond to that. You can use /help for commands.", nil
	}
}

// TrainingOptions controls RetrainModel
type TrainingOptions struct {
	ModelPath     string
	TrainingCSV   string
	LabelColumn   string
	LabelKind     classifier.LabelKind
	SyntheticRows int
	Forest        classifier.Options
}

// minDatasetRows is the smallest dataset worth training on instead of synthetic data
const minDatasetRows = 30

// RetrainModel fits a new forest, saves it and makes it the active model.
// The training table comes from the training CSV when configured, then the
// recorded dataset when large enough, and synthetic readings otherwise.
func (uc *QualityUseCase) RetrainModel(opts TrainingOptions) (*classifier.Forest, error) {
	table, source, err := uc.trainingTable(opts)
	if err != nil {
		return nil, err
	}
	log.Printf("Training classifier on %d rows from %s", table.Len(), source)

	f, err := classifier.Train(table, opts.Forest)
	if err != nil {
		return nil, fmt.Errorf("failed to train model: %w", err)
	}
	log.Printf("Model trained with accuracy: %.2f", f.Accuracy)

	if err := f.Save(opts.ModelPath); err != nil {
		return nil, err
	}
	uc.SetModel(f)
	return f, nil
}

func (uc *QualityUseCase) trainingTable(opts TrainingOptions) (classifier.TrainingTable, string, error) {
	if opts.TrainingCSV != "" {
		file, err := os.Open(opts.TrainingCSV)
		if err != nil {
			return classifier.TrainingTable{}, "", fmt.Errorf("failed to open training data: %w", err)
		}
		defer file.Close()
		table, err := classifier.LoadTrainingCSV(file, opts.LabelColumn)
		if err != nil {
			return classifier.TrainingTable{}, "", err
		}
		return table, opts.TrainingCSV, nil
	}

	records, err := uc.Dataset()
	switch {
	case err == nil:
		table := classifier.TableFromRecords(records, opts.LabelKind)
		if table.Len() >= minDatasetRows {
			return table, "recorded dataset", nil
		}
	case !errors.Is(err, repository.ErrDatasetNotFound):
		return classifier.TrainingTable{}, "", err
	}

	rows := opts.SyntheticRows
	if rows <= 0 {
		rows = 1000
	}
	return classifier.Synthesize(rows, opts.Forest.Seed, uc.evaluator, opts.LabelKind), "synthetic readings", nil
}
