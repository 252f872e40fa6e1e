// Package services – UserService
//
// UserService is the UserDirectory backed by the users table. Profiles are
// provisioned by the account system; this service only reads them, plus the
// startup bootstrap that promotes configured identities to admin.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/reaction-leaderboard/internal/domain"
	"github.com/tbourn/reaction-leaderboard/internal/repo"
)

// UserService implements UserDirectory.
type UserService struct {
	DB *gorm.DB
}

// NewUserService returns a UserService reading profiles from db.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// FindByIdentity returns the profile for identity or ErrUserNotFound.
func (s *UserService) FindByIdentity(ctx context.Context, identity string) (*domain.User, error) {
	u, err := repo.FindUserByIdentity(ctx, s.DB, identity)
	return s.profile(u, err)
}

// FindByToken returns the profile holding the session token or ErrUserNotFound.
func (s *UserService) FindByToken(ctx context.Context, token string) (*domain.User, error) {
	u, err := repo.FindUserByToken(ctx, s.DB, token)
	return s.profile(u, err)
}

// EnsureAdmins creates or promotes each identity to the admin role. Blank
// entries are skipped.
func (s *UserService) EnsureAdmins(ctx context.Context, identities []string) error {
	for _, id := range identities {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		u := &domain.User{Identity: id, Role: domain.RoleAdmin}
		if err := repo.UpsertUser(ctx, s.DB, u, "role"); err != nil {
			return err
		}
		log.Info().Str("user", id).Msg("admin role ensured")
	}
	return nil
}

func (s *UserService) profile(u *domain.User, err error) (*domain.User, error) {
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Location = normalizeLocation(u.Location)
	return u, nil
}

// normalizeLocation collapses whitespace and composes the label to NFC so
// equal places compare equal. Casing is left as the profile stores it.
func normalizeLocation(loc string) string {
	return norm.NFC.String(strings.Join(strings.Fields(loc), " "))
}
