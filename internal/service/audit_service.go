package service

import (
	"context"

	"hardmine/internal/domain"
	"hardmine/internal/logger"
	"hardmine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditService handles audit logging. Failures are logged, never returned.
type AuditService struct {
	repo *repository.AuditRepository
}

func NewAuditService(db *pgxpool.Pool) *AuditService {
	return &AuditService{
		repo: repository.NewAuditRepository(db),
	}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	s.LogWithRequest(ctx, userID, action, category, "", "", details)
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID int64, action, category, ip, userAgent string, details map[string]interface{}) {
	if s == nil {
		return
	}
	log := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogLogin logs a user login
func (s *AuditService) LogLogin(ctx context.Context, userID int64, ip, userAgent string) {
	s.LogWithRequest(ctx, userID, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, nil)
}

// LogAdminAction logs an admin action against the mining subsystem or a user
func (s *AuditService) LogAdminAction(ctx context.Context, adminID int64, action string, targetUserID int64, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["admin_id"] = adminID
	details["target_user_id"] = targetUserID

	s.Log(ctx, targetUserID, action, domain.AuditCategoryAdmin, details)
}

// LogAdminActionWithTx writes the admin audit entry inside tx so it commits
// or rolls back together with the action itself.
func (s *AuditService) LogAdminActionWithTx(ctx context.Context, tx pgx.Tx, adminID int64, action string, targetUserID int64, details map[string]interface{}) error {
	if s == nil {
		return nil
	}
	if details == nil {
		details = make(map[string]interface{})
	}
	details["admin_id"] = adminID
	details["target_user_id"] = targetUserID

	return s.repo.CreateWithTx(ctx, tx, &domain.AuditLog{
		UserID:   targetUserID,
		Action:   action,
		Category: domain.AuditCategoryAdmin,
		Details:  details,
	})
}

// GetLogsByCategory returns logs by category
func (s *AuditService) GetLogsByCategory(ctx context.Context, category string, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByCategory(ctx, category, limit)
}

// GetUserAuditLogs returns a user's logs, newest first
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByUserID(ctx, userID, limit)
}
