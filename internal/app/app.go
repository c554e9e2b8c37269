// Package app wires configuration into the use case shared by all binaries
package app

import (
	"errors"
	"fmt"
	"log"

	"github.com/abelzeko/water-quality-bot/internal/classifier"
	"github.com/abelzeko/water-quality-bot/internal/config"
	"github.com/abelzeko/water-quality-bot/internal/integration"
	"github.com/abelzeko/water-quality-bot/internal/integration/openai"
	"github.com/abelzeko/water-quality-bot/internal/repository"
	"github.com/abelzeko/water-quality-bot/internal/rules"
	"github.com/abelzeko/water-quality-bot/internal/usecases"
)

// App holds the wired components
type App struct {
	Config  *config.Config
	Repo    repository.RecordRepository
	UseCase *usecases.QualityUseCase
}

// New builds the evaluator, repository and use case from cfg. When withAgent is
// set and an OpenAI key is configured, free-text extraction is enabled.
func New(cfg *config.Config, withAgent bool) (*App, error) {
	table, err := rules.Resolve(cfg.Rules.Preset, cfg.Rules.File)
	if err != nil {
		return nil, err
	}
	evaluator, err := rules.NewEvaluator(table)
	if err != nil {
		return nil, err
	}
	log.Printf("Using rule table %q", table.Name)

	repo, err := repository.Open(cfg.Dataset.Backend, cfg.Dataset.Path, cfg.Dataset.DBPath, evaluator.Complete)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	var agent openai.OpenAIService
	if withAgent && cfg.OpenAI.APIKey != "" {
		agent, err = openai.NewOpenAIService(cfg.OpenAI.APIKey)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to initialize OpenAI service: %w", err)
		}
	}

	useCase := usecases.NewQualityUseCase(evaluator, repo, integration.NewLabReportImporter(), agent)
	if err := useCase.LoadModel(cfg.Model.Path); err != nil && !errors.Is(err, classifier.ErrModelUnavailable) {
		repo.Close()
		return nil, err
	}

	return &App{Config: cfg, Repo: repo, UseCase: useCase}, nil
}

// Close releases the repository
func (a *App) Close() error {
	return a.Repo.Close()
}

// TrainingOptions derives retraining options from the configuration
func (a *App) TrainingOptions() usecases.TrainingOptions {
	m := a.Config.Model
	return usecases.TrainingOptions{
		ModelPath:     m.Path,
		TrainingCSV:   m.TrainingCSV,
		LabelColumn:   m.LabelColumn,
		LabelKind:     classifier.LabelKind(m.LabelKind),
		SyntheticRows: m.SyntheticRows,
		Forest: classifier.Options{
			Trees:   m.Trees,
			Seed:    m.Seed,
			MinLeaf: 1,
		},
	}
}
