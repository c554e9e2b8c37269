// Package integration handles external service interactions
package integration

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/abelzeko/water-quality-bot/internal/entities"
	"github.com/abelzeko/water-quality-bot/internal/repository"
)

// readingColumns hold measurements; every other column is left as text
var readingColumns = []string{
	repository.ColPH, repository.ColTDS, repository.ColHardness, repository.ColNitrate,
	repository.ColUranium, repository.ColConductivity,
}

// LabReportImporter reads water-quality readings from HTML lab reports that
// publish results as a table with pH, TDS, Hardness and Nitrate columns
type LabReportImporter struct {
	client *http.Client
}

// NewLabReportImporter creates a new importer
func NewLabReportImporter() *LabReportImporter {
	return &LabReportImporter{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads a report page and parses its readings
func (li *LabReportImporter) Fetch(url string) ([]entities.Reading, error) {
	log.Printf("Sending HTTP request for lab report %s", url)
	res, err := li.client.Get(url)
	if err != nil {
		log.Printf("Error fetching lab report: %v", err)
		return nil, fmt.Errorf("failed to fetch the lab report: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		log.Printf("Received unexpected status code: %d %s", res.StatusCode, res.Status)
		return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	return li.Parse(res.Body)
}

// Parse extracts readings from the first table in the document whose header
// carries every required column
func (li *LabReportImporter) Parse(r io.Reader) ([]entities.Reading, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the lab report: %w", err)
	}

	var (
		readings []entities.Reading
		found    bool
		firstErr error
		parseErr error
	)

	doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return true
		}

		header := cellTexts(rows.First())
		if err := repository.CheckColumns(header, repository.RequiredColumns, nil); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		found = true
		idx := repository.ColumnIndex(header)

		rows.Slice(1, rows.Length()).EachWithBreak(func(j int, row *goquery.Selection) bool {
			cells := cellTexts(row)
			if len(cells) == 0 || allEmpty(cells) {
				return true
			}
			for _, col := range readingColumns {
				k, ok := idx[col]
				if !ok || k >= len(cells) {
					continue
				}
				v, err := cleanNumber(cells[k])
				if err != nil {
					parseErr = fmt.Errorf("lab report row %d, column %s: %w", j+1, col, err)
					return false
				}
				cells[k] = v
			}
			reading, err := repository.ParseReadingRow(idx, cells)
			if err != nil {
				parseErr = fmt.Errorf("lab report row %d: %w", j+1, err)
				return false
			}
			readings = append(readings, reading)
			return true
		})
		return false
	})

	if parseErr != nil {
		return nil, parseErr
	}
	if !found {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, fmt.Errorf("no readings table found in lab report")
	}

	log.Printf("Parsed %d readings from lab report", len(readings))
	return readings, nil
}

func cellTexts(row *goquery.Selection) []string {
	var out []string
	row.Children().Each(func(i int, cell *goquery.Selection) {
		out = append(out, strings.TrimSpace(cell.Text()))
	})
	return out
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" && c != "-" {
			return false
		}
	}
	return true
}

// cleanNumber strips units and normalizes separators, e.g. "7,2 mg/L" -> "7.2"
// and "1,200 mg/L" -> "1200". Dashes mean no measurement.
func cleanNumber(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "-" || s == "—" {
		return "", nil
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", nil
	}
	return entities.NormalizeNumber(fields[0])
}
