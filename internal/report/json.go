package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/e164networks/e164bill/internal/model"
)

// scanDocument is the JSON export shape: the items plus the run summary.
type scanDocument struct {
	Items   []model.ClassifiedItem `json:"results"`
	Summary model.ScanSummary      `json:"summary"`
}

// WriteScanJSON writes classified items and the run summary as indented JSON.
func WriteScanJSON(w io.Writer, items []model.ClassifiedItem, summary model.ScanSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if items == nil {
		items = []model.ClassifiedItem{}
	}
	return eris.Wrap(enc.Encode(scanDocument{Items: items, Summary: summary}), "report: encode json")
}
