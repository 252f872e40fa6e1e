// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the UserDirectory lookups.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/reaction-leaderboard/internal/domain"
)

// FindUserByIdentity fetches a user by name or returns ErrNotFound.
func FindUserByIdentity(ctx context.Context, db *gorm.DB, identity string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("identity = ?", identity).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByToken fetches the user holding token or returns ErrNotFound.
// Blank tokens never match.
func FindUserByToken(ctx context.Context, db *gorm.DB, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNotFound
	}
	var u domain.User
	if err := db.WithContext(ctx).Where("token = ?", token).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUser inserts u or, when the identity exists, overwrites the columns
// listed in update. With no columns listed, an existing row is left untouched.
func UpsertUser(ctx context.Context, db *gorm.DB, u *domain.User, update ...string) error {
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "identity"}},
	}
	if len(update) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(update)
	}
	return db.WithContext(ctx).Clauses(onConflict).Create(u).Error
}
