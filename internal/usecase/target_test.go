package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/usecase"
)

// ---- fakes ----

type fakeTargetStore struct {
	create   func(ctx context.Context, t *domain.Target) (*domain.Target, error)
	getByID  func(ctx context.Context, id string) (*domain.Target, error)
	list     func(ctx context.Context) ([]*domain.Target, error)
	update   func(ctx context.Context, t *domain.Target) (*domain.Target, error)
	delete   func(ctx context.Context, id string) error
}

func (f *fakeTargetStore) Create(ctx context.Context, t *domain.Target) (*domain.Target, error) {
	return f.create(ctx, t)
}

func (f *fakeTargetStore) GetByID(ctx context.Context, id string) (*domain.Target, error) {
	return f.getByID(ctx, id)
}

func (f *fakeTargetStore) List(ctx context.Context) ([]*domain.Target, error) {
	return f.list(ctx)
}

func (f *fakeTargetStore) Update(ctx context.Context, t *domain.Target) (*domain.Target, error) {
	return f.update(ctx, t)
}

func (f *fakeTargetStore) Delete(ctx context.Context, id string) error {
	return f.delete(ctx, id)
}

func TestCreateTarget_RejectsInvalidURL(t *testing.T) {
	store := &fakeTargetStore{}
	uc := usecase.NewTargetUsecase(store)

	_, err := uc.CreateTarget(context.Background(), usecase.CreateTargetInput{
		Name: "bad", URL: "ftp://example.com", Method: "GET",
	})
	if !errors.Is(err, domain.ErrTargetInvalidURL) {
		t.Fatalf("want ErrTargetInvalidURL, got %v", err)
	}
}

func TestCreateTarget_RejectsInvalidMethod(t *testing.T) {
	store := &fakeTargetStore{}
	uc := usecase.NewTargetUsecase(store)

	_, err := uc.CreateTarget(context.Background(), usecase.CreateTargetInput{
		Name: "bad", URL: "https://example.com", Method: "TRACE",
	})
	if !errors.Is(err, domain.ErrTargetInvalidMethod) {
		t.Fatalf("want ErrTargetInvalidMethod, got %v", err)
	}
}

func TestCreateTarget_PersistsNormalizedTarget(t *testing.T) {
	var captured *domain.Target
	store := &fakeTargetStore{
		create: func(_ context.Context, t *domain.Target) (*domain.Target, error) {
			captured = t
			out := *t
			out.ID = "tgt-1"
			return &out, nil
		},
	}
	uc := usecase.NewTargetUsecase(store)

	body := json.RawMessage(`{"key":"value"}`)
	got, err := uc.CreateTarget(context.Background(), usecase.CreateTargetInput{
		Name: "webhook", URL: "https://example.com/hook", Method: "POST", Body: body,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "tgt-1" {
		t.Errorf("ID = %q, want tgt-1", got.ID)
	}
	if captured.CreatedAt.IsZero() || captured.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be stamped before persisting")
	}
}

func TestCreateTarget_NormalizesMethodCase(t *testing.T) {
	var captured *domain.Target
	store := &fakeTargetStore{
		create: func(_ context.Context, t *domain.Target) (*domain.Target, error) {
			captured = t
			return t, nil
		},
	}
	uc := usecase.NewTargetUsecase(store)

	if _, err := uc.CreateTarget(context.Background(), usecase.CreateTargetInput{
		Name: "webhook", URL: "https://example.com/hook", Method: "get",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Method != "GET" {
		t.Errorf("Method = %q, want normalized GET", captured.Method)
	}
}

func TestUpdateTarget_PropagatesNotFound(t *testing.T) {
	store := &fakeTargetStore{
		getByID: func(_ context.Context, _ string) (*domain.Target, error) {
			return nil, domain.ErrTargetNotFound
		},
	}
	uc := usecase.NewTargetUsecase(store)

	_, err := uc.UpdateTarget(context.Background(), usecase.UpdateTargetInput{
		ID: "missing", URL: "https://example.com", Method: "GET",
	})
	if !errors.Is(err, domain.ErrTargetNotFound) {
		t.Fatalf("want ErrTargetNotFound, got %v", err)
	}
}

func TestDeleteTarget_Delegates(t *testing.T) {
	var deletedID string
	store := &fakeTargetStore{
		delete: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	uc := usecase.NewTargetUsecase(store)

	if err := uc.DeleteTarget(context.Background(), "tgt-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deletedID != "tgt-1" {
		t.Errorf("deleted ID = %q, want tgt-1", deletedID)
	}
}
