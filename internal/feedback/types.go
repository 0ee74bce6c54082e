// Package feedback stores member decisions on suggested conditions. Accepted conditions are fed
// back into later analyses as existing conditions, so a member is not asked about the same
// condition twice.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/condition-suggestion-engine/internal/domain"
)

// Feedback represents a member's decision on one suggested condition.
type Feedback struct {
	ID              int64             `json:"id,omitempty"`
	MemberID        string            `json:"member_id"`
	Condition       string            `json:"condition"`       // Name as suggested
	NormalizedName  string            `json:"normalized_name"` // Canonical name, unique per member
	Source          domain.Source     `json:"source"`
	Confidence      domain.Confidence `json:"confidence"`
	ValidationScore int               `json:"validation_score"`
	AutoAdded       bool              `json:"auto_added"`    // Attached without confirmation
	UserAccepted    bool              `json:"user_accepted"` // Member kept the condition
	Notes           string            `json:"notes,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Validate checks the fields required to store feedback.
func (f *Feedback) Validate() error {
	if f == nil {
		return errors.New("feedback is required")
	}
	if strings.TrimSpace(f.MemberID) == "" {
		return domain.NewValidationError("member_id", "is required", f.MemberID)
	}
	if strings.TrimSpace(f.NormalizedName) == "" {
		return domain.NewValidationError("normalized_name", "is required", f.NormalizedName)
	}
	if f.ValidationScore < 0 || f.ValidationScore > 100 {
		return domain.NewValidationError("validation_score", "must be between 0 and 100", f.ValidationScore)
	}
	return nil
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback. Feedback for the same member and normalized name is
	// updated in place.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback for a member and normalized condition name. It returns nil, nil
	// when none exists.
	Get(ctx context.Context, memberID, normalizedName string) (*Feedback, error)

	// ListByMember returns all feedback of one member, newest first.
	ListByMember(ctx context.Context, memberID string) ([]*Feedback, error)

	// List returns all feedback entries with pagination.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader, skipping entries that already exist.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

const exportVersion = "1.0"

// NewStore opens the store selected by cfg.Driver. The "none" driver, or an empty one, returns
// a nil store.
func NewStore(cfg domain.FeedbackConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return nil, nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return NewPostgresStoreFromURL(cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unsupported feedback driver %q", cfg.Driver)
	}
}

// AcceptedConditions returns the condition names a member has accepted.
func AcceptedConditions(entries []*Feedback) []string {
	names := make([]string, 0, len(entries))
	for _, fb := range entries {
		if fb.UserAccepted {
			names = append(names, fb.NormalizedName)
		}
	}
	return names
}
