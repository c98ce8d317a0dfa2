package reviews

import (
	"context"

	"github.com/angelmondragon/tourbook-backend/internal/repo"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthorRelation is preloaded on every review read.
const AuthorRelation = "Author"

type Repository struct {
	*repo.Collection[models.Review]
}

func NewRepository(db *gorm.DB) *Repository {
	c := repo.NewCollection[models.Review](db).WithPreload(AuthorRelation, "user_id")
	return &Repository{Collection: c}
}

// CountForeign counts the reviews among ids that were not written by userID.
func (r *Repository) CountForeign(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.Review{}).
		Where("id IN ? AND user_id <> ?", ids, userID).
		Count(&n).Error
	return n, err
}
