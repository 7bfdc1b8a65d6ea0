package cart

import (
	"context"
	"errors"

	"github.com/angelmondragon/gourmet-cart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gourmet-cart/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores cart state rows in the cart_states table.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart state repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get loads the payload stored under key.
func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	var row models.CartState
	err := r.db.WithContext(ctx).
		Where("state_key = ?", key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query cart state")
	}
	return []byte(row.Payload), nil
}

// Put upserts the payload stored under key.
func (r *Repository) Put(ctx context.Context, key string, payload []byte) error {
	row := models.CartState{StateKey: key, Payload: string(payload)}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "state_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart state")
	}
	return nil
}
