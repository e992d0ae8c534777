package hearing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const hearingColumns = `id, committee_code, hearing_title, hearing_date, hearing_type, streams,
    sync_confidence, status, processing_stage, status_updated_at, created_at, updated_at, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHearing(row rowScanner) (*Hearing, error) {
	var (
		h             Hearing
		streamsJSON   string
		stage, status string
		statusAt      string
		createdAt     string
		updatedAt     string
		errMsg        sql.NullString
	)
	if err := row.Scan(
		&h.ID, &h.CommitteeCode, &h.Title, &h.Date, &h.Type, &streamsJSON,
		&h.SyncConfidence, &status, &stage, &statusAt, &createdAt, &updatedAt, &errMsg,
	); err != nil {
		return nil, err
	}
	h.Stage = Stage(stage)
	h.Status = Status(status)
	h.ErrorMessage = errMsg.String
	if strings.TrimSpace(streamsJSON) != "" {
		if err := json.Unmarshal([]byte(streamsJSON), &h.Streams); err != nil {
			return nil, fmt.Errorf("decode streams for hearing %d: %w", h.ID, err)
		}
	}
	if h.Streams == nil {
		h.Streams = map[string]string{}
	}
	h.StatusUpdatedAt = parseTime(statusAt)
	h.CreatedAt = parseTime(createdAt)
	h.UpdatedAt = parseTime(updatedAt)
	return &h, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeStreams(streams map[string]string) (string, error) {
	if streams == nil {
		streams = map[string]string{}
	}
	data, err := json.Marshal(streams)
	if err != nil {
		return "", fmt.Errorf("encode streams: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

// Discover inserts a newly found hearing at the discovered stage.
func (s *Store) Discover(ctx context.Context, n NewHearing) (*Hearing, bool, error) {
	if err := n.Validate(); err != nil {
		return nil, false, err
	}
	streams, err := encodeStreams(n.Streams)
	if err != nil {
		return nil, false, err
	}
	now := formatTime(time.Now())
	query := s.rebind(`INSERT INTO hearings (
            committee_code, hearing_title, hearing_date, hearing_type, streams,
            sync_confidence, status, processing_stage, status_updated_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (committee_code, hearing_title, hearing_date) DO NOTHING
        RETURNING id`)

	var id int64
	err = retryOnBusy(ensureContext(ctx), func() error {
		return s.db.QueryRowContext(ensureContext(ctx), query,
			n.CommitteeCode, n.Title, n.Date, n.Type, streams,
			n.SyncConfidence, string(StatusNew), string(StageDiscovered), now, now, now,
		).Scan(&id)
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing, lookupErr := s.findByKey(ctx, n.CommitteeCode, n.Title, n.Date)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		return existing, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("insert hearing: %w", err)
	}

	h, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return h, true, nil
}

func (s *Store) findByKey(ctx context.Context, committee, title, date string) (*Hearing, error) {
	row := s.queryRow(ctx,
		`SELECT `+hearingColumns+` FROM hearings
        WHERE committee_code = ? AND hearing_title = ? AND hearing_date = ?`,
		committee, title, date,
	)
	h, err := scanHearing(row)
	if err != nil {
		return nil, fmt.Errorf("lookup existing hearing: %w", err)
	}
	return h, nil
}

// GetByID fetches a hearing.
func (s *Store) GetByID(ctx context.Context, id int64) (*Hearing, error) {
	row := s.queryRow(ctx, `SELECT `+hearingColumns+` FROM hearings WHERE id = ?`, id)
	h, err := scanHearing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get hearing %d: %w", id, err)
	}
	return h, nil
}

// List returns hearings ordered by id.
func (s *Store) List(ctx context.Context, stages ...Stage) ([]*Hearing, error) {
	query := `SELECT ` + hearingColumns + ` FROM hearings`
	args := make([]any, 0, len(stages))
	if len(stages) > 0 {
		placeholders := make([]string, len(stages))
		for i, stage := range stages {
			placeholders[i] = "?"
			args = append(args, string(stage))
		}
		query += ` WHERE processing_stage IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY id`
	return s.collect(ctx, query, args...)
}

// NextForStage returns hearings ready for work at stage.
func (s *Store) NextForStage(ctx context.Context, stage Stage, limit int) ([]*Hearing, error) {
	if limit <= 0 {
		limit = 1
	}
	return s.collect(ctx,
		`SELECT `+hearingColumns+` FROM hearings
        WHERE processing_stage = ? AND (error_message IS NULL OR error_message = '')
        ORDER BY status_updated_at, id
        LIMIT ?`,
		string(stage), limit,
	)
}

func (s *Store) collect(ctx context.Context, query string, args ...any) ([]*Hearing, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query hearings: %w", err)
	}
	defer rows.Close()

	var out []*Hearing
	for rows.Next() {
		h, err := scanHearing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hearing: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hearings: %w", err)
	}
	return out, nil
}

// CompareAndSwapStage advances a hearing only if its stored stage is t.From.
func (s *Store) CompareAndSwapStage(ctx context.Context, t Transition) (*Hearing, error) {
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}
	stamp := formatTime(at)

	query := `UPDATE hearings
        SET processing_stage = ?, status = ?, status_updated_at = ?, updated_at = ?, error_message = NULL`
	args := []any{string(t.To), string(t.Status), stamp, stamp}
	if t.Streams != nil {
		streams, err := encodeStreams(t.Streams)
		if err != nil {
			return nil, err
		}
		query += `, streams = ?`
		args = append(args, streams)
	}
	query += ` WHERE id = ? AND processing_stage = ?`
	args = append(args, t.ID, string(t.From))

	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("advance hearing %d: %w", t.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("advance hearing %d: %w", t.ID, err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, t.ID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, staleError(t.ID, t.From, current.Stage)
	}
	return s.GetByID(ctx, t.ID)
}

// Reset moves a hearing to stage regardless of its current stage.
func (s *Store) Reset(ctx context.Context, id int64, stage Stage, status Status) (*Hearing, error) {
	stamp := formatTime(time.Now())
	res, err := s.exec(ctx,
		`UPDATE hearings
        SET processing_stage = ?, status = ?, status_updated_at = ?, updated_at = ?, error_message = NULL
        WHERE id = ?`,
		string(stage), string(status), stamp, stamp, id,
	)
	if err != nil {
		return nil, fmt.Errorf("reset hearing %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, notFoundError(id)
	}
	return s.GetByID(ctx, id)
}

// SetError records the last stage failure; errored hearings are skipped by NextForStage.
func (s *Store) SetError(ctx context.Context, id int64, message string) error {
	if strings.TrimSpace(message) == "" {
		message = "unknown error"
	}
	return s.updateError(ctx, id, message)
}

// ClearError makes an errored hearing eligible for work again.
func (s *Store) ClearError(ctx context.Context, id int64) error {
	return s.updateError(ctx, id, "")
}

func (s *Store) updateError(ctx context.Context, id int64, message string) error {
	res, err := s.exec(ctx,
		`UPDATE hearings SET error_message = ?, updated_at = ? WHERE id = ?`,
		nullableString(message), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update error for hearing %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return notFoundError(id)
	}
	return nil
}

// Remove deletes a hearing. Only operators call this.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM hearings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove hearing %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove hearing %d: %w", id, err)
	}
	return affected > 0, nil
}

// Stats counts hearings per stage.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStage: make(map[Stage]int, len(stageOrder))}
	rows, err := s.query(ctx,
		`SELECT processing_stage, COUNT(1),
            SUM(CASE WHEN error_message IS NULL OR error_message = '' THEN 0 ELSE 1 END)
        FROM hearings GROUP BY processing_stage`)
	if err != nil {
		return stats, fmt.Errorf("hearing stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			stage   string
			count   int
			errored int
		)
		if err := rows.Scan(&stage, &count, &errored); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStage[Stage(stage)] = count
		stats.Total += count
		stats.Errored += errored
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}
