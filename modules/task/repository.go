package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/taskflow/domain/task"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a task does not exist or belongs to another owner.
	ErrNotFound = errors.New("task not found")
)

// idBatchSize bounds the number of ids bound into a single IN clause.
const idBatchSize = 500

// Repository handles task persistence using GORM. Every owner-facing query is
// scoped by owner_id.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Models returns the entities the repository needs migrated.
func Models() []any {
	return []any{&domain.Task{}, &domain.OwnerSequence{}}
}

// Create assigns the owner's next sequence number and inserts the task in the
// same transaction.
func (r *Repository) Create(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter := domain.OwnerSequence{OwnerID: t.OwnerID, LastSeq: 1}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_seq": gorm.Expr("owner_sequences.last_seq + 1"),
			}),
		}).Create(&counter).Error; err != nil {
			return fmt.Errorf("failed to advance sequence: %w", err)
		}

		var current domain.OwnerSequence
		if err := tx.First(&current, "owner_id = ?", t.OwnerID).Error; err != nil {
			return fmt.Errorf("failed to read sequence: %w", err)
		}
		t.Seq = current.LastSeq

		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
		return nil
	})
}

// FindByID finds an owner's task by id.
func (r *Repository) FindByID(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	var t domain.Task
	result := r.db.WithContext(ctx).First(&t, "id = ? AND owner_id = ?", id, ownerID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &t, nil
}

// FindByOwner returns all of an owner's tasks.
func (r *Repository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	result := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("seq desc").Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// Update writes the editable fields of an owner's task.
func (r *Repository) Update(ctx context.Context, t *domain.Task) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND owner_id = ?", t.ID, t.OwnerID).
		Updates(map[string]any{
			"details":         t.Details,
			"priority":        string(t.Priority),
			"status":          string(t.Status),
			"deadline":        t.Deadline,
			"start_time":      t.StartTime,
			"estimated_hours": t.EstimatedHours,
			"updated_at":      t.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete permanently removes an owner's task.
func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&domain.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireResult reports one expiry pass.
type ExpireResult struct {
	Updated int64
	Expired []*domain.Task
}

// ExpireOverdue marks every task whose deadline is before today and whose
// status is neither Completed nor Expired. The status filter is part of the
// UPDATE itself, so a task completed after candidates were read is left alone.
func (r *Repository) ExpireOverdue(ctx context.Context, today time.Time) (*ExpireResult, error) {
	db := r.db.WithContext(ctx)
	today = domain.TruncateDay(today)
	skip := []string{string(domain.StatusCompleted), string(domain.StatusExpired)}

	var candidateIDs []string
	if err := db.Model(&domain.Task{}).
		Where("deadline < ? AND status NOT IN ?", today, skip).
		Pluck("id", &candidateIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to find overdue tasks: %w", err)
	}
	if len(candidateIDs) == 0 {
		return &ExpireResult{}, nil
	}

	result := db.Model(&domain.Task{}).
		Where("deadline < ? AND status NOT IN ?", today, skip).
		Updates(map[string]any{
			"status":     string(domain.StatusExpired),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to expire overdue tasks: %w", result.Error)
	}

	expired := make([]*domain.Task, 0, len(candidateIDs))
	for start := 0; start < len(candidateIDs); start += idBatchSize {
		end := min(start+idBatchSize, len(candidateIDs))
		var batch []*domain.Task
		if err := db.Where("id IN ? AND status = ?", candidateIDs[start:end], string(domain.StatusExpired)).
			Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("failed to load expired tasks: %w", err)
		}
		expired = append(expired, batch...)
	}

	return &ExpireResult{Updated: result.RowsAffected, Expired: expired}, nil
}
