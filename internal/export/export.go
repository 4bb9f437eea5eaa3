package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/imathwy/tbps/internal/models"
)

const (
	JSONFileName = "theorem_search_results.json"
	CSVFileName  = "theorem_search_results.csv"
)

var csvHeader = "Name,Similarity Score,Statement,Node Count"

// ErrNoResults is returned when there is no successful search to export.
var ErrNoResults = errors.New("no successful search results to export")

// ToJSON renders the response as indented JSON. The output is deterministic.
func ToJSON(resp *models.SearchResponse) ([]byte, error) {
	if err := exportable(resp); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return data, nil
}

// ToCSV renders one row per result, in ranking order. Text fields are always
// quoted with embedded quotes doubled.
func ToCSV(resp *models.SearchResponse) ([]byte, error) {
	if err := exportable(resp); err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(resp.Results)+1)
	lines = append(lines, csvHeader)
	for _, r := range resp.Results {
		lines = append(lines, strings.Join([]string{
			quote(r.Name),
			strconv.FormatFloat(r.SimilarityScore, 'f', -1, 64),
			quote(r.Statement),
			strconv.Itoa(r.NodeCount),
		}, ","))
	}

	return []byte(strings.Join(lines, "\n")), nil
}

// WriteFiles writes both export formats into dir and returns their paths.
func WriteFiles(dir string, resp *models.SearchResponse) ([]string, error) {
	jsonData, err := ToJSON(resp)
	if err != nil {
		return nil, err
	}
	csvData, err := ToCSV(resp)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	jsonPath := filepath.Join(dir, JSONFileName)
	if err := os.WriteFile(jsonPath, jsonData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}

	csvPath := filepath.Join(dir, CSVFileName)
	if err := os.WriteFile(csvPath, csvData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", csvPath, err)
	}

	return []string{jsonPath, csvPath}, nil
}

func exportable(resp *models.SearchResponse) error {
	if resp == nil || !resp.Success {
		return ErrNoResults
	}
	return nil
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
