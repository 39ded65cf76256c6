package synthesis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"exegesis/internal/domain"
)

// AuditRecord is one line of the synthesis audit log.
type AuditRecord struct {
	ID              string                 `json:"id"`
	Timestamp       time.Time              `json:"timestamp"`
	Query           string                 `json:"query"`
	Model           string                 `json:"model,omitempty"`
	Source          domain.SynthesisSource `json:"source"`
	OfferedIDs      []string               `json:"offered_excerpt_ids"`
	CitedIDs        []string               `json:"cited_excerpt_ids"`
	TotalSchools    int                    `json:"total_schools"`
	ModelConfidence *float64               `json:"model_confidence"`
	FinalConfidence float64                `json:"final_confidence"`
	RawResponse     string                 `json:"raw_response"`
	Error           string                 `json:"error,omitempty"`
	Result          domain.SynthesisResult `json:"result"`
}

// AuditLog appends records to a JSON Lines file.
type AuditLog struct {
	mu   sync.Mutex
	path string
}

// NewAuditLog returns nil for an empty path, which disables auditing.
func NewAuditLog(path string) *AuditLog {
	if path == "" {
		return nil
	}
	return &AuditLog{path: path}
}

// Path returns the log file location.
func (a *AuditLog) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Append writes rec as one line, filling in its id and timestamp when unset.
func (a *AuditLog) Append(rec AuditRecord) error {
	if a == nil {
		return nil
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit dir: %w", err)
		}
	}
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write audit log: %w", err)
	}
	return f.Close()
}
