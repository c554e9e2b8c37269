package entities

import "strings"

// Band is the coarse risk category derived from a score
type Band string

const (
	BandSafe     Band = "Safe"
	BandModerate Band = "Moderate"
	BandHigh     Band = "High Risk"
)

// ElementLabel is a proxy tag inferred from chemical-surrogate thresholds
type ElementLabel string

const (
	ElementUranium      ElementLabel = "Uranium"
	ElementCesium       ElementLabel = "Cesium"
	ElementRadium       ElementLabel = "Radium"
	ElementNoneDetected ElementLabel = "None Detected"
)

// JoinElements renders labels the way they are stored in the dataset
func JoinElements(labels []ElementLabel) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ";")
}

// SplitElements parses the stored form produced by JoinElements
func SplitElements(s string) []ElementLabel {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var labels []ElementLabel
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			labels = append(labels, ElementLabel(part))
		}
	}
	return labels
}

// Assessment is the result shown to the user for one evaluated reading
type Assessment struct {
	Reading       Reading
	Score         int
	Band          Band
	Elements      []ElementLabel
	Prediction    string
	PredictionErr error // set when the classifier could not be consulted
}

// DatasetRecord is one persisted row of the dataset
type DatasetRecord struct {
	Reading
	RiskScore  int
	Band       Band
	Elements   []ElementLabel
	Prediction string
}

// Record converts an assessment into its persisted form
func (a Assessment) Record() DatasetRecord {
	return DatasetRecord{
		Reading:    a.Reading,
		RiskScore:  a.Score,
		Band:       a.Band,
		Elements:   a.Elements,
		Prediction: a.Prediction,
	}
}
