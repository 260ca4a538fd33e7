package gormstore

import (
	"context"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/rows"

	"gorm.io/gorm/clause"
)

// ============================================================
// Users
// ============================================================

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "GormStore.ListUsers")
	defer span.End()

	var list []rows.User
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&list).Error; err != nil {
		return nil, err
	}
	out := make([]domain.User, len(list))
	for i, r := range list {
		out[i] = r.ToDomain()
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "GormStore.GetUser")
	defer span.End()

	var row rows.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, "user", id)
	}
	u := row.ToDomain()
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "GormStore.GetUserByEmail")
	defer span.End()

	var row rows.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return nil, translate(err, "user", email)
	}
	u := row.ToDomain()
	return &u, nil
}

func (s *Store) InsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "GormStore.InsertUser")
	defer span.End()

	row := rows.UserFromDomain(*u)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate(err, "user", u.Email)
	}
	out := row.ToDomain()
	return &out, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "GormStore.DeleteUser")
	defer span.End()

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&rows.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "user", ID: id}
	}
	return s.db.WithContext(ctx).Where("user_id = ?", id).Delete(&rows.Dismissal{}).Error
}

// ============================================================
// Reminder dismissals
// ============================================================

func (s *Store) ListDismissedReminders(ctx context.Context, userID string) ([]int64, error) {
	ctx, span := tracer.Start(ctx, "GormStore.ListDismissedReminders")
	defer span.End()

	var ids []int64
	err := s.db.WithContext(ctx).Model(&rows.Dismissal{}).
		Where("user_id = ?", userID).
		Order("operation_id").
		Pluck("operation_id", &ids).Error
	return ids, err
}

func (s *Store) DismissReminder(ctx context.Context, userID string, operationID int64) error {
	ctx, span := tracer.Start(ctx, "GormStore.DismissReminder")
	defer span.End()

	row := rows.Dismissal{UserID: userID, OperationID: operationID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Store) RestoreReminder(ctx context.Context, userID string, operationID int64) error {
	ctx, span := tracer.Start(ctx, "GormStore.RestoreReminder")
	defer span.End()

	return s.db.WithContext(ctx).
		Where("user_id = ? AND operation_id = ?", userID, operationID).
		Delete(&rows.Dismissal{}).Error
}
