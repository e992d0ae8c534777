package hearing

import "context"

// Repository is the persistence contract shared by the SQL and memory stores.
type Repository interface {
	// Discover inserts a hearing unless one with the same committee, title,
	// and date exists. created is false when the existing row is returned.
	Discover(ctx context.Context, n NewHearing) (h *Hearing, created bool, err error)
	GetByID(ctx context.Context, id int64) (*Hearing, error)
	// List returns hearings ordered by id, optionally filtered by stage.
	List(ctx context.Context, stages ...Stage) ([]*Hearing, error)
	// NextForStage returns up to limit error-free hearings at stage, oldest
	// status change first.
	NextForStage(ctx context.Context, stage Stage, limit int) ([]*Hearing, error)
	// CompareAndSwapStage applies t only when the stored stage equals t.From.
	CompareAndSwapStage(ctx context.Context, t Transition) (*Hearing, error)
	// Reset moves a hearing to stage unconditionally and clears its error.
	Reset(ctx context.Context, id int64, stage Stage, status Status) (*Hearing, error)
	SetError(ctx context.Context, id int64, message string) error
	ClearError(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

var (
	_ Repository = (*Store)(nil)
	_ Repository = (*MemoryStore)(nil)
)
