package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/lead-generator/internal/jobstore"
)

// DecodeJobCursor parses an opaque page cursor. An empty string is the
// first page.
func DecodeJobCursor(cursorStr string) (*jobstore.Cursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	createdPart, jobID, ok := strings.Cut(string(decoded), "|")
	if !ok || jobID == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(createdPart, "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &jobstore.Cursor{
		CreatedAt: time.Unix(0, createdAt),
		JobID:     jobID,
	}, nil
}

// EncodeJobCursor renders a cursor for the next_cursor field
func EncodeJobCursor(cursor *jobstore.Cursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.JobID)
	return base64.RawURLEncoding.EncodeToString([]byte(cs))
}
