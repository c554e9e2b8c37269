package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WQ_DATASET_PATH", filepath.Join(dir, "water_data.csv"))
	t.Setenv("WQ_MODEL_PATH", filepath.Join(dir, "models", "element_model.json"))
	return dir
}

func TestCLI_EvaluateListExportRemove(t *testing.T) {
	setupEnv(t)

	out := runCLI(t, "evaluate", "--ph", "5", "--tds", "700", "--hardness", "250", "--nitrate", "50", "--location", "Well B")
	assert.Contains(t, out, "Risk score: 100/100")
	assert.Contains(t, out, "Classifier: unavailable")

	runCLI(t, "evaluate", "--ph", "7", "--tds", "300", "--hardness", "150", "--nitrate", "20", "--location", "Tap")

	out = runCLI(t, "dataset", "list")
	assert.Contains(t, out, "Dataset: 2 records")
	assert.Contains(t, out, "Well B: score 100 High Risk")

	out = runCLI(t, "dataset", "export", "--columns", "Location,Band")
	assert.Equal(t, "Location,Band\nWell B,High Risk\nTap,Safe\n", out)

	out = runCLI(t, "dataset", "remove", "Tap")
	assert.Contains(t, out, "Removed 1 records")
}

func TestCLI_EvaluateRejectsOutOfRange(t *testing.T) {
	setupEnv(t)
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"evaluate", "--ph", "20", "--tds", "1", "--hardness", "1", "--nitrate", "1"})
	assert.ErrorContains(t, cmd.Execute(), "pH")
}

func TestCLI_ReadingFlagsRequired(t *testing.T) {
	dir := setupEnv(t)

	for _, sub := range []string{"evaluate", "predict"} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{sub, "--tds", "300", "--hardness", "150", "--nitrate", "20"})
		err := cmd.Execute()
		require.Error(t, err, sub)
		assert.Contains(t, err.Error(), `"ph"`, sub)
	}

	// nothing was recorded for the rejected evaluation
	_, err := os.Stat(filepath.Join(dir, "water_data.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_TrainThenPredict(t *testing.T) {
	setupEnv(t)

	out := runCLI(t, "predict", "--ph", "7", "--tds", "200", "--hardness", "100", "--nitrate", "5")
	assert.Contains(t, out, "Classifier unavailable")

	out = runCLI(t, "train", "--trees", "15")
	assert.Contains(t, out, "Model trained with accuracy")

	out = runCLI(t, "predict", "--ph", "7", "--tds", "200", "--hardness", "100", "--nitrate", "5")
	assert.Equal(t, "Prediction: Safe\n", out)
}

func TestCLI_DatasetListEmpty(t *testing.T) {
	setupEnv(t)
	out := runCLI(t, "dataset", "list")
	assert.Contains(t, out, "No dataset found yet")
}

func TestCLI_Presets(t *testing.T) {
	out := runCLI(t, "presets")
	assert.Contains(t, out, "canonical:")
	assert.Contains(t, out, "hardness300:")
}
