package job

import "github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type GetRunRequest struct {
	ID int64
}

func (r GetRunRequest) Validate() *apperror.AppError {
	if r.ID <= 0 {
		return apperror.New(apperror.BadRequest, "invalid run id")
	}
	return nil
}

type ListRunsRequest struct {
	Limit int
}

func (r ListRunsRequest) Validate() *apperror.AppError {
	if r.Limit < 0 || r.Limit > maxListLimit {
		return apperror.New(apperror.BadRequest, "limit must be between 1 and 100")
	}
	return nil
}

// StatusResponse describes the scheduler and the most recent run.
type StatusResponse struct {
	State   State `json:"state"`
	LastRun *Run  `json:"last_run"`
}
