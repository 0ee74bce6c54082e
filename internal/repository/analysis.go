// Package repository persists analysis audit records in PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/condition-suggestion-engine/internal/domain"
)

const defaultListLimit = 50

// AnalysisRepository handles analysis record persistence
type AnalysisRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *pgxpool.Pool, logger *logrus.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a record. A zero ID is replaced with a fresh UUID and a zero CreatedAt with the
// current time.
func (r *AnalysisRepository) Create(ctx context.Context, record *domain.AnalysisRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	autoAdd, err := marshalConditions(record.AutoAdd)
	if err != nil {
		return fmt.Errorf("encoding auto-add conditions: %w", err)
	}
	manualReview, err := marshalConditions(record.ManualReview)
	if err != nil {
		return fmt.Errorf("encoding manual-review conditions: %w", err)
	}

	query := `
		INSERT INTO analysis_records (
			id, member_id, mode, input_count, raw_suggestion_count,
			auto_add, manual_review, processing_time_ms, request_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.MemberID,
		string(record.Mode),
		record.InputCount,
		record.RawSuggestionCount,
		autoAdd,
		manualReview,
		record.ProcessingTimeMs,
		record.RequestID,
		record.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"analysis_id": record.ID,
			"member_id":   record.MemberID,
			"error":       err,
		}).Error("Failed to create analysis record")
		return fmt.Errorf("creating analysis record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"analysis_id":   record.ID,
		"mode":          record.Mode,
		"auto_add":      len(record.AutoAdd),
		"manual_review": len(record.ManualReview),
	}).Debug("Analysis record created")

	return nil
}

const selectAnalysis = `
	SELECT id, member_id, mode, input_count, raw_suggestion_count,
		   auto_add, manual_review, processing_time_ms, request_id, created_at
	FROM analysis_records`

// GetByID retrieves a record by its ID
func (r *AnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AnalysisRecord, error) {
	record, err := scanRecord(r.db.QueryRow(ctx, selectAnalysis+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("analysis record not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"analysis_id": id,
			"error":       err,
		}).Error("Failed to get analysis record by ID")
		return nil, fmt.Errorf("getting analysis record by ID: %w", err)
	}
	return record, nil
}

// ListByMember returns the most recent records for a member, newest first.
func (r *AnalysisRepository) ListByMember(ctx context.Context, memberID string, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.Query(ctx, selectAnalysis+`
		WHERE member_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing analysis records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.AnalysisRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analysis records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*domain.AnalysisRecord, error) {
	var (
		record       domain.AnalysisRecord
		mode         string
		autoAdd      []byte
		manualReview []byte
	)
	err := row.Scan(
		&record.ID,
		&record.MemberID,
		&mode,
		&record.InputCount,
		&record.RawSuggestionCount,
		&autoAdd,
		&manualReview,
		&record.ProcessingTimeMs,
		&record.RequestID,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Mode = domain.AnalysisMode(mode)

	if err := json.Unmarshal(autoAdd, &record.AutoAdd); err != nil {
		return nil, fmt.Errorf("decoding auto-add conditions: %w", err)
	}
	if err := json.Unmarshal(manualReview, &record.ManualReview); err != nil {
		return nil, fmt.Errorf("decoding manual-review conditions: %w", err)
	}
	return &record, nil
}

func marshalConditions(conditions []domain.FilteredCondition) ([]byte, error) {
	if conditions == nil {
		conditions = []domain.FilteredCondition{}
	}
	return json.Marshal(conditions)
}
