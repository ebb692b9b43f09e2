package usecase

import (
	"context"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/store"
)

type RunUsecase struct {
	runs store.RunStore
}

func NewRunUsecase(runs store.RunStore) *RunUsecase {
	return &RunUsecase{runs: runs}
}

func (u *RunUsecase) ListRuns(ctx context.Context, f store.ListRunsFilter) ([]*domain.Run, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return u.runs.List(ctx, f)
}

func (u *RunUsecase) GetRunWithAttempts(ctx context.Context, id string) (*domain.Run, []*domain.Attempt, error) {
	return u.runs.GetWithAttempts(ctx, id)
}
