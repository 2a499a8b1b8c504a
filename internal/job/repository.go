package job

import "context"

type Repository interface {
	Create(ctx context.Context, r *Run) error
	Update(ctx context.Context, r *Run) error
	Get(ctx context.Context, id int64) (*Run, error)
	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]Run, error)
	// RecoverStale marks runs left in the running state as failed.
	RecoverStale(ctx context.Context) (int64, error)
}

// StaleRunError is stored on runs that were still running when the process
// stopped.
const StaleRunError = "interrupted"
