package artifact

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/cuongbtq/lead-generator/internal/domain"
)

// EncodeCSV renders contacts as a CSV table with a header row and the
// fixed column order of domain.ArtifactFields
func EncodeCSV(contacts []domain.Contact) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(domain.ArtifactFields); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, c := range contacts {
		row := []string{c.Name, c.Phone, c.Email, c.Website, c.Address, c.Rating, string(c.Source)}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// Filename is the download name of a job's artifact
func Filename(jobID string) string {
	return "leads_" + jobID + ".csv"
}
