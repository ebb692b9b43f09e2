package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/store"
)

type ScheduleUsecase struct {
	schedules store.ScheduleStore
	targets   store.TargetStore
}

func NewScheduleUsecase(schedules store.ScheduleStore, targets store.TargetStore) *ScheduleUsecase {
	return &ScheduleUsecase{schedules: schedules, targets: targets}
}

type CreateScheduleInput struct {
	TargetID              string
	Type                  domain.ScheduleType
	IntervalSeconds       int
	DurationSeconds       *int
	MaxRetries            int
	RequestTimeoutSeconds int
}

func (u *ScheduleUsecase) CreateSchedule(ctx context.Context, in CreateScheduleInput) (*domain.Schedule, error) {
	if _, err := u.targets.GetByID(ctx, in.TargetID); err != nil {
		return nil, fmt.Errorf("%w", domain.ErrScheduleTargetMissing)
	}
	if in.Type == domain.ScheduleTypeWindow && in.DurationSeconds == nil {
		return nil, domain.ErrScheduleWindowDuration
	}

	now := time.Now().UTC()
	s := &domain.Schedule{
		TargetID:              in.TargetID,
		Type:                  in.Type,
		IntervalSeconds:       in.IntervalSeconds,
		DurationSeconds:       in.DurationSeconds,
		Status:                domain.ScheduleStatusActive,
		StartedAt:             now,
		MaxRetries:            in.MaxRetries,
		RequestTimeoutSeconds: in.RequestTimeoutSeconds,
	}
	if in.Type == domain.ScheduleTypeWindow && in.DurationSeconds != nil {
		expires := now.Add(time.Duration(*in.DurationSeconds) * time.Second)
		s.ExpiresAt = &expires
	}

	created, err := u.schedules.Create(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	return created, nil
}

func (u *ScheduleUsecase) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	return u.schedules.GetByID(ctx, id)
}

func (u *ScheduleUsecase) ListSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	return u.schedules.List(ctx)
}

func (u *ScheduleUsecase) PauseSchedule(ctx context.Context, id string) error {
	s, err := u.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.Status != domain.ScheduleStatusActive {
		return domain.ErrScheduleNotActive
	}
	return u.schedules.SetStatus(ctx, id, domain.ScheduleStatusPaused)
}

func (u *ScheduleUsecase) ResumeSchedule(ctx context.Context, id string) error {
	s, err := u.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.Status != domain.ScheduleStatusPaused {
		return domain.ErrScheduleNotPaused
	}
	return u.schedules.SetStatus(ctx, id, domain.ScheduleStatusActive)
}

func (u *ScheduleUsecase) DeleteSchedule(ctx context.Context, id string) error {
	return u.schedules.Delete(ctx, id)
}
