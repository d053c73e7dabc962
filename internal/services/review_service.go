package services

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReviewInput is the user-editable part of a review
type ReviewInput struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

// ReviewService manages reviews and keeps item ratings current
type ReviewService interface {
	// Create adds the caller's review of an item they received
	Create(ctx context.Context, actor access.Identity, itemID uint, input ReviewInput) (*models.Review, error)
	// Update replaces the rating and comment of the caller's own review
	Update(ctx context.Context, actor access.Identity, reviewID uint, input ReviewInput) (*models.Review, error)
	// Delete removes the caller's own review
	Delete(ctx context.Context, actor access.Identity, reviewID uint) error
	// SetVisibility hides or shows a review without touching ratings
	SetVisibility(ctx context.Context, reviewID uint, visible bool) (*models.Review, error)
	// ListForItem returns visible reviews of an item, newest first
	ListForItem(ctx context.Context, itemID uint) ([]models.Review, error)
	// RebuildRatings recomputes every cached rating
	RebuildRatings(ctx context.Context) (int, error)
}

type reviewService struct {
	db      *gorm.DB
	ratings RatingAggregator
}

func NewReviewService(db *gorm.DB) ReviewService {
	return &reviewService{db: db}
}

func validateReview(input ReviewInput) error {
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return invalid("rating", "must be between 1 and 5")
	}
	return nil
}

func (s *reviewService) Create(ctx context.Context, actor access.Identity, itemID uint, input ReviewInput) (*models.Review, error) {
	if err := validateReview(input); err != nil {
		return nil, err
	}

	review := models.Review{
		UserID:     actor.UserID,
		MenuItemID: itemID,
		Rating:     input.Rating,
		Comment:    input.Comment,
		IsVisible:  true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.MenuItem
		if err := tx.Unscoped().Select("id").First(&item, itemID).Error; err != nil {
			return notFound(err)
		}

		var received int64
		err := tx.Model(&models.OrderItem{}).
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("orders.user_id = ? AND order_items.menu_item_id = ? AND orders.status IN ?",
				actor.UserID, itemID, []models.OrderStatus{models.OrderDelivered, models.OrderCompleted}).
			Count(&received).Error
		if err != nil {
			return err
		}
		if received == 0 {
			return ErrReviewNotAllowed
		}

		var existing int64
		if err := tx.Model(&models.Review{}).
			Where("user_id = ? AND menu_item_id = ?", actor.UserID, itemID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateReview
		}

		if err := tx.Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReview
			}
			return err
		}
		_, _, err = s.ratings.Recompute(tx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"review_id": review.ID, "menu_item_id": itemID}).Debug("Review created")
	return &review, nil
}

func (s *reviewService) Update(ctx context.Context, actor access.Identity, reviewID uint, input ReviewInput) (*models.Review, error) {
	if err := validateReview(input); err != nil {
		return nil, err
	}
	var review models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", reviewID, actor.UserID).First(&review).Error; err != nil {
			return notFound(err)
		}
		review.Rating = input.Rating
		review.Comment = input.Comment
		if err := tx.Model(&review).Select("rating", "comment").Updates(&review).Error; err != nil {
			return err
		}
		_, _, err := s.ratings.Recompute(tx, review.MenuItemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *reviewService) Delete(ctx context.Context, actor access.Identity, reviewID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.Where("id = ? AND user_id = ?", reviewID, actor.UserID).First(&review).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		_, _, err := s.ratings.Recompute(tx, review.MenuItemID)
		return err
	})
}

func (s *reviewService) SetVisibility(ctx context.Context, reviewID uint, visible bool) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, reviewID).Error; err != nil {
			return notFound(err)
		}
		review.IsVisible = visible
		return tx.Model(&review).Update("is_visible", visible).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *reviewService) ListForItem(ctx context.Context, itemID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Where("menu_item_id = ? AND is_visible = ?", itemID, true).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (s *reviewService) RebuildRatings(ctx context.Context) (int, error) {
	return s.ratings.RebuildAll(ctx, s.db)
}
