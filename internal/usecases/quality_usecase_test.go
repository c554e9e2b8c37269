package usecases

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abelzeko/water-quality-bot/internal/classifier"
	"github.com/abelzeko/water-quality-bot/internal/entities"
	"github.com/abelzeko/water-quality-bot/internal/integration"
	"github.com/abelzeko/water-quality-bot/internal/integration/openai"
	"github.com/abelzeko/water-quality-bot/internal/repository"
	"github.com/abelzeko/water-quality-bot/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	resp *openai.AgentResponse
	err  error
}

func (f *fakeAgent) InterpretUserQuery(ctx context.Context, userMessage string) (*openai.AgentResponse, error) {
	return f.resp, f.err
}

func newUseCase(t *testing.T, agent openai.OpenAIService) (*QualityUseCase, *repository.CSVRecordRepository) {
	t.Helper()
	ev, err := rules.NewEvaluator(rules.Canonical())
	require.NoError(t, err)
	repo, err := repository.NewCSVRecordRepository(filepath.Join(t.TempDir(), "water_data.csv"))
	require.NoError(t, err)
	return NewQualityUseCase(ev, repo, integration.NewLabReportImporter(), agent), repo
}

func TestEvaluate_PersistsAndUpdatesSession(t *testing.T) {
	uc, repo := newUseCase(t, nil)
	session := NewSession(1)

	a, err := uc.Evaluate(session, entities.Reading{Location: "Well", PH: 5, TDS: 700, Hardness: 250, Nitrate: 50})
	require.NoError(t, err)
	assert.Equal(t, 100, a.Score)
	assert.Equal(t, entities.BandHigh, a.Band)
	assert.True(t, errors.Is(a.PredictionErr, classifier.ErrModelUnavailable))

	require.NotNil(t, session.LastAssessment)
	assert.Equal(t, 1, session.Evaluations)
	assert.Equal(t, "Well", session.LastReading.Location)

	records, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, a.Record(), records[0])
}

func TestPredict_ModelUnavailable(t *testing.T) {
	uc, _ := newUseCase(t, nil)

	_, err := uc.Predict(NewSession(1), entities.Reading{PH: 7})
	assert.True(t, errors.Is(err, classifier.ErrModelUnavailable))

	err = uc.LoadModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, classifier.ErrModelUnavailable))
	_, err = uc.Model()
	assert.Error(t, err)
}

func TestRetrainModel_SyntheticThenPredict(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	modelPath := filepath.Join(t.TempDir(), "models", "element_model.json")

	f, err := uc.RetrainModel(TrainingOptions{
		ModelPath:     modelPath,
		LabelKind:     classifier.LabelBand,
		SyntheticRows: 300,
		Forest:        classifier.Options{Trees: 20, Seed: 42},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, f.Classes)

	_, err = os.Stat(modelPath)
	require.NoError(t, err)

	label, err := uc.Predict(NewSession(1), entities.Reading{PH: 7, TDS: 200, Hardness: 100, Nitrate: 5})
	require.NoError(t, err)
	assert.Equal(t, string(entities.BandSafe), label)

	a := uc.Assess(entities.Reading{PH: 7, TDS: 200, Hardness: 100, Nitrate: 5})
	assert.NoError(t, a.PredictionErr)
	assert.Equal(t, string(entities.BandSafe), a.Prediction)

	other, _ := newUseCase(t, nil)
	require.NoError(t, other.LoadModel(modelPath))
}

func TestRetrainModel_FromTrainingCSV(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "water_dataset.csv")
	var data strings.Builder
	data.WriteString("pH,TDS,Hardness,Nitrate,Element\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&data, "%.1f,%d,%d,%d,Uranium\n", 5.5+float64(i)/10, 600+i*10, 250+i, 50+i)
		fmt.Fprintf(&data, "%.1f,%d,%d,%d,Radium\n", 7.8+float64(i)/10, 100+i*10, 90+i, 5+i)
	}
	require.NoError(t, os.WriteFile(csvPath, []byte(data.String()), 0644))

	f, err := uc.RetrainModel(TrainingOptions{
		ModelPath:   filepath.Join(dir, "model.json"),
		TrainingCSV: csvPath,
		LabelColumn: "Element",
		Forest:      classifier.Options{Trees: 15, Seed: 42},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Radium", "Uranium"}, f.Classes)
}

func TestDataset_BackfillsElements(t *testing.T) {
	uc, repo := newUseCase(t, nil)

	_, err := uc.Dataset()
	assert.True(t, errors.Is(err, repository.ErrDatasetNotFound))

	legacy := "Location,pH,TDS,Hardness,Nitrate\nTap,8.0,100,100,10\n"
	require.NoError(t, os.WriteFile(repo.Path, []byte(legacy), 0644))

	records, err := uc.Dataset()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []entities.ElementLabel{entities.ElementRadium}, records[0].Elements)
	assert.Equal(t, 0, records[0].RiskScore)
	assert.Equal(t, entities.BandSafe, records[0].Band)
}

func TestDataset_RecomputesScoreForLegacyRows(t *testing.T) {
	uc, repo := newUseCase(t, nil)
	repo.Backfill = uc.Evaluator().Complete

	legacy := "Location,pH,TDS,Hardness,Nitrate\nRiver,5,700,250,50\n"
	require.NoError(t, os.WriteFile(repo.Path, []byte(legacy), 0644))

	records, err := uc.Dataset()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 100, records[0].RiskScore)
	assert.Equal(t, entities.BandHigh, records[0].Band)

	// the next rewrite stores the recomputed values, not zero
	_, err = uc.Evaluate(nil, entities.Reading{Location: "Tap", PH: 7, TDS: 300, Hardness: 150, Nitrate: 20})
	require.NoError(t, err)

	raw, err := os.ReadFile(repo.Path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "River,5,700,250,50,,,100,High Risk,Uranium;Cesium,", lines[1])
}

func TestExportCSV_SelectedColumns(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	_, err := uc.Evaluate(nil, entities.Reading{Location: "A", PH: 7, TDS: 300, Hardness: 150, Nitrate: 20})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, uc.ExportCSV(&buf, []string{"Location", "Risk Score", "Elements Found"}))
	assert.Equal(t, "Location,Risk Score,Elements Found\nA,0,None Detected\n", buf.String())

	err = uc.ExportCSV(&buf, []string{"Location", "Lead"})
	var schemaErr *repository.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"Lead"}, schemaErr.Extra)
}

func TestRemoveLocationsAndList(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	for _, loc := range []string{"B", "A", "B", ""} {
		_, err := uc.Evaluate(nil, entities.Reading{Location: loc, PH: 7, TDS: 300, Hardness: 150, Nitrate: 20})
		require.NoError(t, err)
	}

	locs, err := uc.Locations()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, locs)

	n, err := uc.RemoveLocations([]string{"B"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := uc.Dataset()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestImportLabReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<table><tr><th>Location</th><th>pH</th><th>TDS</th><th>Hardness</th><th>Nitrate</th></tr>
<tr><td>North</td><td>7.0</td><td>300</td><td>150</td><td>20</td></tr>
<tr><td>South</td><td>5.0</td><td>700</td><td>250</td><td>50</td></tr></table>`)
	}))
	defer server.Close()

	uc, _ := newUseCase(t, nil)
	assessments, err := uc.ImportLabReport(NewSession(1), server.URL)
	require.NoError(t, err)
	require.Len(t, assessments, 2)
	assert.Equal(t, 0, assessments[0].Score)
	assert.Equal(t, 100, assessments[1].Score)

	records, err := uc.Dataset()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestImportLabReport_RejectsOutOfRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<table><tr><th>pH</th><th>TDS</th><th>Hardness</th><th>Nitrate</th></tr>
<tr><td>15</td><td>300</td><td>150</td><td>20</td></tr></table>`)
	}))
	defer server.Close()

	uc, _ := newUseCase(t, nil)
	_, err := uc.ImportLabReport(nil, server.URL)
	var rangeErr *entities.RangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestHandleNaturalLanguageQuery(t *testing.T) {
	agent := &fakeAgent{resp: &openai.AgentResponse{
		CommandName: openai.CommandEvaluateReading,
		Location:    "cabin",
		PH:          8.0, TDS: 100, Hardness: 100, Nitrate: 10,
		UserMessage: "Checking the cabin well.",
	}}
	uc, _ := newUseCase(t, agent)
	session := NewSession(7)

	msg, err := uc.HandleNaturalLanguageQuery(context.Background(), session, "cabin well: pH 8, tds 100, hardness 100, nitrate 10")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg, "Checking the cabin well."))
	assert.Contains(t, msg, "Radium")
	assert.Equal(t, 1, session.Evaluations)

	agent.resp = &openai.AgentResponse{CommandName: openai.CommandEvaluateReading, MissingFields: []string{"tds"}, UserMessage: "What was the TDS?"}
	msg, err = uc.HandleNaturalLanguageQuery(context.Background(), session, "pH 7")
	require.NoError(t, err)
	assert.Equal(t, "What was the TDS?", msg)

	agent.resp = nil
	agent.err = errors.New("boom")
	msg, err = uc.HandleNaturalLanguageQuery(context.Background(), session, "hello")
	require.NoError(t, err)
	assert.Contains(t, msg, "trouble understanding")
}

func TestFormatAssessment(t *testing.T) {
	uc, _ := newUseCase(t, nil)
	a := uc.Assess(entities.Reading{Location: "Well", PH: 5, TDS: 700, Hardness: 250, Nitrate: 50})

	out := uc.FormatAssessment(a)
	assert.Contains(t, out, "Risk score: 100/100 [██████████] High Risk")
	assert.Contains(t, out, "pH 5 below 6.5 (+30)")
	assert.Contains(t, out, "Elements: Uranium, Cesium")
	assert.Contains(t, out, "Classifier: unavailable")
}

func TestGauge(t *testing.T) {
	assert.Equal(t, "[░░░░░░░░░░]", Gauge(0))
	assert.Equal(t, "[███░░░░░░░]", Gauge(30))
	assert.Equal(t, "[██████████]", Gauge(100))
}

func TestSessions(t *testing.T) {
	s := NewSessions()
	a := s.Get(1)
	assert.Same(t, a, s.Get(1))
	assert.NotSame(t, a, s.Get(2))
}
