package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"collabdocs/internal/models"

	"gorm.io/gorm"
)

var ErrAccessExists = errors.New("user already has access to this document")

// AccessRepositoryImpl handles shared-document access grants.
type AccessRepositoryImpl struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) *AccessRepositoryImpl {
	return &AccessRepositoryImpl{db: db}
}

// Grant creates an access grant for a (document, user) pair. Duplicate
// grants surface as ErrAccessExists via the unique index.
func (r *AccessRepositoryImpl) Grant(ctx context.Context, in *models.AccessCreate) (*models.DocumentAccess, error) {
	grant := &models.DocumentAccess{
		DocID:          in.DocID,
		UserID:         in.UserID,
		PermissionType: in.PermissionType,
	}
	if grant.PermissionType == "" {
		grant.PermissionType = models.PermissionRead
	}

	if err := r.db.WithContext(ctx).Create(grant).Error; err != nil {
		if strings.Contains(err.Error(), "idx_doc_user_access") ||
			errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAccessExists
		}
		return nil, fmt.Errorf("failed to create access grant: %w", err)
	}
	return grant, nil
}

// ListByDocument returns everyone a document is shared with, users preloaded.
func (r *AccessRepositoryImpl) ListByDocument(ctx context.Context, docID string) ([]*models.DocumentAccess, error) {
	var grants []*models.DocumentAccess
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("doc_id = ?", docID).
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list access grants: %w", err)
	}
	return grants, nil
}

// ListByUser returns the documents shared with a user, documents preloaded.
func (r *AccessRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.DocumentAccess, error) {
	var grants []*models.DocumentAccess
	err := r.db.WithContext(ctx).
		Preload("Document").
		Where("user_id = ?", userID).
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shared documents: %w", err)
	}
	return grants, nil
}

func (r *AccessRepositoryImpl) Revoke(ctx context.Context, docID string, userID uint) error {
	result := r.db.WithContext(ctx).
		Where("doc_id = ? AND user_id = ?", docID, userID).
		Delete(&models.DocumentAccess{})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke access: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no access grant for user %d on document %s", userID, docID)
	}
	return nil
}
