package services

import (
	"context"

	"github.com/franciscosanchezn/campus-canteen-api/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RatingAggregator keeps the cached rating fields of menu items in line with
// their reviews. The cache is never authoritative; Recompute rebuilds it from
// the review rows every time.
type RatingAggregator struct{}

// Recompute averages the non-null ratings of an item (two decimals), counts
// them and stores both on the item. It must run inside the transaction that
// changed the reviews.
func (RatingAggregator) Recompute(tx *gorm.DB, itemID uint) (float64, int, error) {
	var ratings []int
	if err := tx.Model(&models.Review{}).
		Where("menu_item_id = ? AND rating IS NOT NULL", itemID).
		Pluck("rating", &ratings).Error; err != nil {
		return 0, 0, err
	}

	avg, count := averageRating(ratings)
	err := tx.Unscoped().Model(&models.MenuItem{}).Where("id = ?", itemID).
		UpdateColumns(map[string]interface{}{"rating_avg": avg, "rating_count": count}).Error
	if err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}

// RebuildAll recomputes the cache of every menu item, returning how many were processed
func (a RatingAggregator) RebuildAll(ctx context.Context, db *gorm.DB) (int, error) {
	var ids []uint
	if err := db.WithContext(ctx).Unscoped().Model(&models.MenuItem{}).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			if _, _, err := a.Recompute(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.WithField("items", len(ids)).Info("Rating cache rebuilt")
	return len(ids), nil
}

func averageRating(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg, _ := decimal.NewFromInt(int64(sum)).
		DivRound(decimal.NewFromInt(int64(len(ratings))), 2).
		Float64()
	return avg, len(ratings)
}
