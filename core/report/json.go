package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type runDocument struct {
	RunID       string             `json:"runId"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Valid       bool               `json:"valid"`
	Scenarios   []scenarioDocument `json:"scenarios"`
}

type scenarioDocument struct {
	Name       string      `json:"scenarioName"`
	Valid      bool        `json:"valid"`
	Errors     []string    `json:"errors"`
	Warnings   []string    `json:"warnings"`
	FinalOrder []orderLine `json:"finalOrder"`
	FinalTotal float64     `json:"finalTotal"`
	Summary    Summary     `json:"summary"`
}

type orderLine struct {
	Name     string   `json:"name"`
	Quantity float64  `json:"quantity"`
	Price    *float64 `json:"price"`
	Subtotal float64  `json:"subtotal"`
}

// WriteJSON stores the results of a validation run as a flat JSON report.
func WriteJSON(path string, results []Result) error {
	doc := runDocument{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Valid:       AllValid(results),
		Scenarios:   make([]scenarioDocument, 0, len(results)),
	}
	for _, result := range results {
		doc.Scenarios = append(doc.Scenarios, toDocument(result))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func toDocument(result Result) scenarioDocument {
	doc := scenarioDocument{
		Name:       result.ScenarioName,
		Valid:      result.Valid,
		Errors:     findingStrings(result.Errors),
		Warnings:   findingStrings(result.Warnings),
		FinalOrder: []orderLine{},
		FinalTotal: result.FinalTotal,
		Summary:    result.Summary,
	}
	for _, entry := range result.FinalOrder.Entries() {
		doc.FinalOrder = append(doc.FinalOrder, orderLine{
			Name:     entry.DisplayName,
			Quantity: entry.Quantity,
			Price:    entry.Price,
			Subtotal: entry.Subtotal(),
		})
	}
	return doc
}

func findingStrings(findings []Finding) []string {
	lines := make([]string, 0, len(findings))
	for _, finding := range findings {
		lines = append(lines, finding.String())
	}
	return lines
}
