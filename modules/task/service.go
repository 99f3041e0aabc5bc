package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/taskflow/domain/task"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrOwnerRequired is returned when a request is not scoped to an owner.
	ErrOwnerRequired = errors.New("owner id is required")
)

// Change identifies what happened to a task.
type Change string

const (
	ChangeCreated   Change = "created"
	ChangeUpdated   Change = "updated"
	ChangeCompleted Change = "completed"
	ChangeDeleted   Change = "deleted"
	ChangeExpired   Change = "expired"
)

// Notifier is told about every persisted task change.
type Notifier interface {
	TaskChanged(change Change, t *domain.Task)
}

// Service implements task business rules on top of the Repository.
type Service struct {
	repo     *Repository
	notifier Notifier
	now      func() time.Time
	sweeps   singleflight.Group
}

// NewService creates a new Service. A nil notifier drops change notifications.
func NewService(repo *Repository, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

// Today returns the current UTC calendar date.
func (s *Service) Today() time.Time {
	return domain.Today(s.now())
}

// Create validates and persists a new task.
func (s *Service) Create(ctx context.Context, req CreateTaskRequest) (*domain.Task, error) {
	if req.OwnerID == "" {
		return nil, ErrOwnerRequired
	}

	priority := domain.PriorityMedium
	if req.Priority != "" {
		p, err := domain.ParsePriority(req.Priority)
		if err != nil {
			return nil, err
		}
		priority = p
	}

	requested := domain.StatusPending
	if req.Status != "" {
		st, err := domain.ParseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		requested = st
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		return nil, err
	}

	startTime, err := parseStartTime(req.StartTime)
	if err != nil {
		return nil, err
	}

	hours := 1
	if req.Hours != nil {
		hours = *req.Hours
	}

	status, err := domain.ResolveStatus(domain.StatusPending, &requested, deadline, s.Today())
	if err != nil {
		return nil, err
	}

	fields := domain.Fields{
		Details:   strings.TrimSpace(req.Details),
		Priority:  priority,
		Status:    status,
		Deadline:  deadline,
		StartTime: startTime,
		Hours:     hours,
	}
	if err := domain.Validate(fields); err != nil {
		return nil, err
	}

	now := s.now()
	t := &domain.Task{
		ID:             uuid.New().String(),
		OwnerID:        req.OwnerID,
		Details:        fields.Details,
		Priority:       fields.Priority,
		Status:         fields.Status,
		Deadline:       fields.Deadline,
		StartTime:      fields.StartTime,
		EstimatedHours: fields.Hours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	s.notify(ChangeCreated, t)
	return t, nil
}

// Get returns an owner's task.
func (s *Service) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	return s.repo.FindByID(ctx, ownerID, taskID)
}

// List returns one page of an owner's tasks with derived status.
func (s *Service) List(ctx context.Context, req ListTasksRequest) (domain.ListResult, error) {
	if req.OwnerID == "" {
		return domain.ListResult{}, ErrOwnerRequired
	}

	q, err := parseListQuery(req)
	if err != nil {
		return domain.ListResult{}, err
	}

	tasks, err := s.repo.FindByOwner(ctx, req.OwnerID)
	if err != nil {
		return domain.ListResult{}, fmt.Errorf("failed to load tasks: %w", err)
	}

	return domain.List(tasks, q, s.Today()), nil
}

// Update applies a partial edit to an owner's task.
func (s *Service) Update(ctx context.Context, req UpdateTaskRequest) (*domain.Task, error) {
	if req.OwnerID == "" {
		return nil, ErrOwnerRequired
	}

	t, err := s.repo.FindByID(ctx, req.OwnerID, req.TaskID)
	if err != nil {
		return nil, err
	}
	previous := t.Status

	fields := domain.Fields{
		Details:   t.Details,
		Priority:  t.Priority,
		Deadline:  t.Deadline,
		StartTime: t.StartTime,
		Hours:     t.EstimatedHours,
	}
	if req.Details != nil {
		fields.Details = strings.TrimSpace(*req.Details)
	}
	if req.Priority != nil {
		p, err := domain.ParsePriority(*req.Priority)
		if err != nil {
			return nil, err
		}
		fields.Priority = p
	}
	if req.Deadline != nil {
		d, err := parseDeadline(*req.Deadline)
		if err != nil {
			return nil, err
		}
		fields.Deadline = d
	}
	if req.ClearStartTime {
		fields.StartTime = nil
	} else if req.StartTime != nil {
		st, err := parseStartTime(req.StartTime)
		if err != nil {
			return nil, err
		}
		fields.StartTime = st
	}
	if req.Hours != nil {
		fields.Hours = *req.Hours
	}

	var requested *domain.Status
	if req.Status != nil {
		st, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		requested = &st
	}

	fields.Status, err = domain.ResolveStatus(previous, requested, fields.Deadline, s.Today())
	if err != nil {
		return nil, err
	}
	if err := domain.Validate(fields); err != nil {
		return nil, err
	}

	t.Details = fields.Details
	t.Priority = fields.Priority
	t.Status = fields.Status
	t.Deadline = fields.Deadline
	t.StartTime = fields.StartTime
	t.EstimatedHours = fields.Hours
	t.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.notify(ChangeUpdated, t)
	if t.Status == domain.StatusCompleted && previous != domain.StatusCompleted {
		s.notify(ChangeCompleted, t)
	}
	return t, nil
}

// Delete permanently removes an owner's task. Deleting twice reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, ownerID, taskID string) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}

	t, err := s.repo.FindByID(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ownerID, taskID); err != nil {
		return err
	}

	s.notify(ChangeDeleted, t)
	return nil
}

// ExpireOverdue persists Expired for every overdue task as of today.
// Concurrent calls for the same day share one pass.
func (s *Service) ExpireOverdue(ctx context.Context, today time.Time) (*ExpireResult, error) {
	today = domain.TruncateDay(today)
	v, err, _ := s.sweeps.Do(domain.FormatDate(today), func() (any, error) {
		result, err := s.repo.ExpireOverdue(ctx, today)
		if err != nil {
			return nil, err
		}
		for _, t := range result.Expired {
			s.notify(ChangeExpired, t)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ExpireResult), nil
}

func (s *Service) notify(change Change, t *domain.Task) {
	if s.notifier != nil {
		s.notifier.TaskChanged(change, t)
	}
}

func parseDeadline(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, &domain.ValidationError{Field: "deadline", Message: "deadline is required"}
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: "deadline", Message: "deadline must be a date in YYYY-MM-DD format"}
	}
	return d, nil
}

func parseStartTime(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(*raw)
	if err != nil {
		return nil, &domain.ValidationError{Field: "startTime", Message: "start date must be a date in YYYY-MM-DD format"}
	}
	return &d, nil
}

func parseListQuery(req ListTasksRequest) (domain.ListQuery, error) {
	q := domain.ListQuery{
		Page:          req.Page,
		Limit:         req.Limit,
		SortDirection: strings.ToLower(req.SortDirection),
		Search:        req.Search,
	}

	if req.SortField != "" {
		if !domain.ValidSortField(req.SortField) {
			return q, &domain.ValidationError{Field: "sortField", Message: fmt.Sprintf("cannot sort by %q", req.SortField)}
		}
		q.SortField = req.SortField
	}
	if req.Status != "" {
		st, err := domain.ParseStatus(req.Status)
		if err != nil {
			return q, err
		}
		q.Status = st
	}
	if req.Priority != "" {
		p, err := domain.ParsePriority(req.Priority)
		if err != nil {
			return q, err
		}
		q.Priority = p
	}
	if req.Date != "" {
		d, err := domain.ParseDate(req.Date)
		if err != nil {
			return q, &domain.ValidationError{Field: "date", Message: "date must be in YYYY-MM-DD format"}
		}
		q.Date = &d
	}
	return q, nil
}
