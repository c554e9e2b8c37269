// Package classifier trains and serves the random-forest risk classifier
package classifier

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/abelzeko/water-quality-bot/internal/entities"
	"github.com/abelzeko/water-quality-bot/internal/repository"
	"github.com/abelzeko/water-quality-bot/internal/rules"
)

// DefaultLabelColumn is the label column of a training CSV
const DefaultLabelColumn = "Element"

// TrainingTable is a labelled numeric feature table
type TrainingTable struct {
	Features []string
	Rows     [][]float64
	Labels   []string
}

// Len returns the number of rows
func (t TrainingTable) Len() int {
	return len(t.Rows)
}

func (t TrainingTable) subset(idx []int) TrainingTable {
	out := TrainingTable{
		Features: t.Features,
		Rows:     make([][]float64, len(idx)),
		Labels:   make([]string, len(idx)),
	}
	for i, j := range idx {
		out.Rows[i] = t.Rows[j]
		out.Labels[i] = t.Labels[j]
	}
	return out
}

// LoadTrainingCSV reads a training table where every column except the label is a feature
func LoadTrainingCSV(r io.Reader, labelColumn string) (TrainingTable, error) {
	if labelColumn == "" {
		labelColumn = DefaultLabelColumn
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return TrainingTable{}, &repository.SchemaError{Missing: []string{labelColumn}}
		}
		return TrainingTable{}, fmt.Errorf("failed to read training header: %w", err)
	}
	if err := repository.CheckColumns(header, []string{labelColumn}, nil); err != nil {
		return TrainingTable{}, err
	}

	labelIdx := -1
	var featureIdx []int
	table := TrainingTable{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == labelColumn {
			labelIdx = i
			continue
		}
		featureIdx = append(featureIdx, i)
		table.Features = append(table.Features, h)
	}
	if len(featureIdx) == 0 {
		return TrainingTable{}, fmt.Errorf("training table has no feature columns besides %q", labelColumn)
	}

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return TrainingTable{}, fmt.Errorf("failed to read training line %d: %w", line, err)
		}

		row := make([]float64, len(featureIdx))
		for j, i := range featureIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return TrainingTable{}, fmt.Errorf("training line %d, column %s: invalid number %q", line, table.Features[j], rec[i])
			}
			row[j] = v
		}
		label := strings.TrimSpace(rec[labelIdx])
		if label == "" {
			return TrainingTable{}, fmt.Errorf("training line %d: empty label", line)
		}
		table.Rows = append(table.Rows, row)
		table.Labels = append(table.Labels, label)
	}

	if table.Len() == 0 {
		return TrainingTable{}, fmt.Errorf("training table has no rows")
	}
	return table, nil
}

// TableFromRecords builds a training table from dataset records using the
// four core readings as features and the given label of each record
func TableFromRecords(records []entities.DatasetRecord, kind LabelKind) TrainingTable {
	table := TrainingTable{Features: coreFeatures()}
	for _, rec := range records {
		label := recordLabel(rec.Band, rec.Elements, kind)
		if label == "" {
			continue
		}
		table.Rows = append(table.Rows, []float64{rec.PH, rec.TDS, rec.Hardness, rec.Nitrate})
		table.Labels = append(table.Labels, label)
	}
	return table
}

// LabelKind selects what a synthetic or dataset-derived table is labelled with
type LabelKind string

const (
	LabelBand    LabelKind = "band"
	LabelElement LabelKind = "element"
)

func recordLabel(band entities.Band, elements []entities.ElementLabel, kind LabelKind) string {
	if kind == LabelElement {
		if len(elements) == 0 {
			return ""
		}
		return string(elements[0])
	}
	return string(band)
}

func coreFeatures() []string {
	return []string{
		entities.PH.Label(),
		entities.TDS.Label(),
		entities.Hardness.Label(),
		entities.Nitrate.Label(),
	}
}

// sampling ranges for synthetic readings
var synthRanges = [4][2]float64{
	{4, 10},    // pH
	{50, 1000}, // TDS
	{20, 500},  // Hardness
	{0, 100},   // Nitrate
}

// Synthesize draws n uniform random readings and labels them with the evaluator
func Synthesize(n int, seed int64, ev *rules.Evaluator, kind LabelKind) TrainingTable {
	rng := rand.New(rand.NewSource(seed))
	table := TrainingTable{Features: coreFeatures()}

	for i := 0; i < n; i++ {
		var v [4]float64
		for j, rg := range synthRanges {
			v[j] = math.Round((rg[0]+rng.Float64()*(rg[1]-rg[0]))*100) / 100
		}
		reading := entities.Reading{PH: v[0], TDS: v[1], Hardness: v[2], Nitrate: v[3]}
		score := ev.Score(reading)
		label := recordLabel(ev.Band(score), ev.DetectElements(reading), kind)

		table.Rows = append(table.Rows, v[:])
		table.Labels = append(table.Labels, label)
	}
	return table
}

// Split performs a single shuffled holdout split
func Split(t TrainingTable, testFraction float64, seed int64) (train, test TrainingTable) {
	n := t.Len()
	nTest := int(math.Ceil(float64(n) * testFraction))
	if n < 2 || nTest <= 0 {
		return t, TrainingTable{Features: t.Features}
	}
	if nTest >= n {
		nTest = n - 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return t.subset(perm[nTest:]), t.subset(perm[:nTest])
}
