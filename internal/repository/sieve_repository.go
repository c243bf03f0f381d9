package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"sievehub/internal/models"
)

// ErrDuplicate surfaces a unique-constraint violation without leaking the
// driver error text to callers.
var ErrDuplicate = errors.New("duplicate record")

type SieveRepository interface {
	Create(ctx context.Context, sieve *models.Sieve) error
	GetByID(ctx context.Context, id string) (*models.Sieve, error)
	Update(ctx context.Context, id string, updates map[string]any) error
	// Delete removes the sieve, its follow rows and, when deleteShareLink
	// is set, the paired share link, all in one transaction.
	Delete(ctx context.Context, id string, shareLinkID string, deleteShareLink bool) error
	ListByCreator(ctx context.Context, creator string, publicOnly bool) ([]models.Sieve, error)
	ListFollowed(ctx context.Context, userID string) ([]models.Sieve, error)

	// Follow and Unfollow mutate the follow relation and recompute the
	// denormalized follow count from COUNT(*) inside the same transaction,
	// returning the fresh count.
	Follow(ctx context.Context, sieveID, userID string) (int64, error)
	Unfollow(ctx context.Context, sieveID, userID string) (int64, error)
	FollowCount(ctx context.Context, sieveID string) (int64, error)
	ListAll(ctx context.Context) ([]models.Sieve, error)
}

type sieveRepository struct {
	db *gorm.DB
}

func NewSieveRepository(db *gorm.DB) SieveRepository {
	return &sieveRepository{db: db}
}

func (r *sieveRepository) Create(ctx context.Context, sieve *models.Sieve) error {
	if err := r.db.WithContext(ctx).Create(sieve).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create sieve: %w", err)
	}
	return nil
}

func (r *sieveRepository) GetByID(ctx context.Context, id string) (*models.Sieve, error) {
	var sieve models.Sieve
	err := r.db.WithContext(ctx).First(&sieve, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sieve: %w", err)
	}
	return &sieve, nil
}

func (r *sieveRepository) Update(ctx context.Context, id string, updates map[string]any) error {
	err := r.db.WithContext(ctx).Model(&models.Sieve{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update sieve: %w", err)
	}
	return nil
}

func (r *sieveRepository) Delete(ctx context.Context, id string, shareLinkID string, deleteShareLink bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sieve_id = ?", id).Delete(&models.SieveFollow{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Sieve{}, "id = ?", id).Error; err != nil {
			return err
		}
		if deleteShareLink && shareLinkID != "" {
			if err := tx.Delete(&models.ShareLink{}, "id = ?", shareLinkID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete sieve: %w", err)
	}
	return nil
}

func (r *sieveRepository) ListByCreator(ctx context.Context, creator string, publicOnly bool) ([]models.Sieve, error) {
	q := r.db.WithContext(ctx).Where("creator = ?", creator)
	if publicOnly {
		q = q.Where("visibility = ?", models.VisibilityPublic)
	}
	var sieves []models.Sieve
	if err := q.Order("created_at DESC").Find(&sieves).Error; err != nil {
		return nil, fmt.Errorf("list sieves by creator: %w", err)
	}
	return sieves, nil
}

func (r *sieveRepository) ListFollowed(ctx context.Context, userID string) ([]models.Sieve, error) {
	var sieves []models.Sieve
	err := r.db.WithContext(ctx).
		Joins("JOIN sieve_follows ON sieve_follows.sieve_id = sieves.id").
		Where("sieve_follows.user_id = ?", userID).
		Order("sieve_follows.created_at DESC").
		Find(&sieves).Error
	if err != nil {
		return nil, fmt.Errorf("list followed sieves: %w", err)
	}
	return sieves, nil
}

func (r *sieveRepository) Follow(ctx context.Context, sieveID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		follow := models.SieveFollow{SieveID: sieveID, UserID: userID}
		if err := tx.Create(&follow).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return recountFollows(tx, sieveID, &count)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("follow sieve: %w", err)
	}
	return count, nil
}

func (r *sieveRepository) Unfollow(ctx context.Context, sieveID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("sieve_id = ? AND user_id = ?", sieveID, userID).
			Delete(&models.SieveFollow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return recountFollows(tx, sieveID, &count)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("unfollow sieve: %w", err)
	}
	return count, nil
}

// recountFollows recomputes the denormalized follow count from the follow
// table. Never increment in place; concurrent follow/unfollow would drift.
func recountFollows(tx *gorm.DB, sieveID string, count *int64) error {
	if err := tx.Model(&models.SieveFollow{}).
		Where("sieve_id = ?", sieveID).
		Count(count).Error; err != nil {
		return err
	}
	return tx.Model(&models.Sieve{}).
		Where("id = ?", sieveID).
		Update("follow_count", *count).Error
}

func (r *sieveRepository) FollowCount(ctx context.Context, sieveID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SieveFollow{}).
		Where("sieve_id = ?", sieveID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count follows: %w", err)
	}
	return count, nil
}

func (r *sieveRepository) ListAll(ctx context.Context) ([]models.Sieve, error) {
	var sieves []models.Sieve
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&sieves).Error; err != nil {
		return nil, fmt.Errorf("list all sieves: %w", err)
	}
	return sieves, nil
}
