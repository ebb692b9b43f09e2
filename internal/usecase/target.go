package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/store"
)

type TargetUsecase struct {
	targets store.TargetStore
}

func NewTargetUsecase(targets store.TargetStore) *TargetUsecase {
	return &TargetUsecase{targets: targets}
}

type CreateTargetInput struct {
	Name    string
	URL     string
	Method  string
	Headers map[string]string
	Body    json.RawMessage
}

func (u *TargetUsecase) CreateTarget(ctx context.Context, in CreateTargetInput) (*domain.Target, error) {
	in.Method = strings.ToUpper(in.Method)
	if err := validateTarget(in.URL, in.Method); err != nil {
		return nil, err
	}

	t := domain.NewTarget(in.Name, in.URL, in.Method, in.Headers, in.Body)
	created, err := u.targets.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	return created, nil
}

func (u *TargetUsecase) GetTarget(ctx context.Context, id string) (*domain.Target, error) {
	return u.targets.GetByID(ctx, id)
}

func (u *TargetUsecase) ListTargets(ctx context.Context) ([]*domain.Target, error) {
	return u.targets.List(ctx)
}

type UpdateTargetInput struct {
	ID      string
	Name    string
	URL     string
	Method  string
	Headers map[string]string
	Body    json.RawMessage
}

func (u *TargetUsecase) UpdateTarget(ctx context.Context, in UpdateTargetInput) (*domain.Target, error) {
	in.Method = strings.ToUpper(in.Method)
	if err := validateTarget(in.URL, in.Method); err != nil {
		return nil, err
	}

	existing, err := u.targets.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	existing.Name = in.Name
	existing.URL = in.URL
	existing.Method = in.Method
	existing.Headers = in.Headers
	existing.BodyTemplate = in.Body
	existing.UpdatedAt = time.Now().UTC()

	updated, err := u.targets.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("update target: %w", err)
	}
	return updated, nil
}

func (u *TargetUsecase) DeleteTarget(ctx context.Context, id string) error {
	return u.targets.Delete(ctx, id)
}

func validateTarget(url, method string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return domain.ErrTargetInvalidURL
	}
	if !domain.AllowedMethods[strings.ToUpper(method)] {
		return domain.ErrTargetInvalidMethod
	}
	return nil
}
