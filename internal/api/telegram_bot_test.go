package api

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/abelzeko/water-quality-bot/internal/entities"
	"github.com/abelzeko/water-quality-bot/internal/repository"
	"github.com/abelzeko/water-quality-bot/internal/rules"
	"github.com/abelzeko/water-quality-bot/internal/usecases"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUseCase(t *testing.T) *usecases.QualityUseCase {
	t.Helper()
	ev, err := rules.NewEvaluator(rules.Canonical())
	require.NoError(t, err)
	repo, err := repository.NewCSVRecordRepository(filepath.Join(t.TempDir(), "water_data.csv"))
	require.NoError(t, err)
	return usecases.NewQualityUseCase(ev, repo, nil, nil)
}

func TestParseReadingArgs(t *testing.T) {
	r, err := ParseReadingArgs("7,2 310 140 12 Garden well")
	require.NoError(t, err)
	assert.Equal(t, entities.Reading{Location: "Garden well", PH: 7.2, TDS: 310, Hardness: 140, Nitrate: 12}, r)

	_, err = ParseReadingArgs("7 310 140")
	assert.Error(t, err)

	_, err = ParseReadingArgs("7 abc 140 12")
	assert.ErrorContains(t, err, "TDS")

	r, err = ParseReadingArgs("7 1,200 150 20 Well")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, r.TDS)
	assert.Equal(t, "Well", r.Location)

	_, err = ParseReadingArgs("7 1,20.5 150 20")
	assert.ErrorContains(t, err, "TDS")

	_, err = ParseReadingArgs("15 310 140 12")
	var rangeErr *entities.RangeError
	assert.True(t, errors.As(err, &rangeErr))
}

func TestCheckReply(t *testing.T) {
	uc := newUseCase(t)
	session := usecases.NewSession(1)

	out := CheckReply(uc, session, "8.0 100 100 10 Tap")
	assert.Contains(t, out, "Risk score: 0/100")
	assert.Contains(t, out, "Radium")
	assert.Equal(t, 1, session.Evaluations)

	out = CheckReply(uc, session, "oops")
	assert.Contains(t, out, "Example: /check")
}

func TestPredictReply_Unavailable(t *testing.T) {
	uc := newUseCase(t)
	out := PredictReply(uc, usecases.NewSession(1), "7 300 150 20")
	assert.Contains(t, out, "unavailable")
}

func TestRemoveReply(t *testing.T) {
	uc := newUseCase(t)
	assert.Contains(t, RemoveReply(uc, "Tap"), "No dataset found yet")

	CheckReply(uc, nil, "7 300 150 20 Tap")
	CheckReply(uc, nil, "7 300 150 20 Well")

	assert.Contains(t, RemoveReply(uc, ""), "• Tap")
	assert.Equal(t, "Removed 1 records ✅", RemoveReply(uc, "Tap, Nowhere"))
}

func TestImportReply_NotConfigured(t *testing.T) {
	uc := newUseCase(t)
	assert.Contains(t, ImportReply(uc, nil, ""), "Please specify")
	assert.Contains(t, ImportReply(uc, nil, "http://127.0.0.1:1/report"), "Could not import")
}
