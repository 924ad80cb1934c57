package service

import (
	"context"
	"errors"

	"hardmine/internal/domain"
	"hardmine/internal/logger"
	"hardmine/internal/repository"
	"hardmine/internal/telegram"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UserService struct {
	users     *repository.UserRepository
	referrals *ReferralService
	adminIDs  map[int64]bool
}

func NewUserService(db *pgxpool.Pool, referrals *ReferralService, adminTgIDs []int64) *UserService {
	admins := make(map[int64]bool, len(adminTgIDs))
	for _, id := range adminTgIDs {
		admins[id] = true
	}
	return &UserService{
		users:     repository.NewUserRepository(db),
		referrals: referrals,
		adminIDs:  admins,
	}
}

func (s *UserService) Get(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Login returns the user for a validated Telegram identity, creating it on
// first sight. A referral code is only honoured for new users.
func (s *UserService) Login(ctx context.Context, tg *telegram.WebAppUser, referralCode string) (*domain.User, bool, error) {
	isAdmin := s.adminIDs[tg.ID]

	user, err := s.users.GetByTgID(ctx, tg.ID)
	if err == nil {
		if user.Username != tg.Username || user.FirstName != tg.FirstName || user.IsAdmin != isAdmin {
			user.Username, user.FirstName, user.IsAdmin = tg.Username, tg.FirstName, isAdmin
			if err := s.users.UpdateProfile(ctx, user); err != nil {
				return nil, false, err
			}
		}
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, err
	}

	user = &domain.User{TgID: tg.ID, Username: tg.Username, FirstName: tg.FirstName, IsAdmin: isAdmin}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}

	if referralCode != "" && s.referrals != nil {
		if _, err := s.referrals.Apply(ctx, user.ID, referralCode); err != nil {
			logger.WithContext(ctx).Warn("referral on signup ignored", "user_id", user.ID, "code", referralCode, "error", err)
		} else if ref, err := s.users.GetByID(ctx, user.ID); err == nil {
			user = ref
		}
	}
	return user, true, nil
}

func (s *UserService) TopMiners(ctx context.Context, limit int) ([]repository.TopMinerEntry, error) {
	return s.users.GetTopByHashrate(ctx, limit)
}

func (s *UserService) HashrateRank(ctx context.Context, userID int64) (int, error) {
	return s.users.GetHashrateRank(ctx, userID)
}
