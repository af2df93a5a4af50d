package repository

import (
	"context"
	"fmt"

	"collabdocs/internal/models"

	"gorm.io/gorm"
)

// DocumentRepositoryImpl handles all database operations for documents using GORM.
// Learning: this is the IMPLEMENTATION; consumers declare the interfaces they need.
type DocumentRepositoryImpl struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository.
// Returns concrete type - "Accept interfaces, return structs".
func NewDocumentRepository(db *gorm.DB) *DocumentRepositoryImpl {
	return &DocumentRepositoryImpl{db: db}
}

// Create inserts a new document. The UUID key is assigned in BeforeCreate.
func (r *DocumentRepositoryImpl) Create(ctx context.Context, in *models.DocumentCreate) (*models.Document, error) {
	doc := &models.Document{
		DocName:     in.DocName,
		Content:     in.Content,
		UserID:      in.UserID,
		DirectoryID: in.DirectoryID,
	}

	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document

	err := r.db.WithContext(ctx).First(&doc, "doc_id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// GetContent returns just the persisted content of a document. Used by the
// collaboration hub to seed a room's init snapshot.
func (r *DocumentRepositoryImpl) GetContent(ctx context.Context, id string) (string, error) {
	doc, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// ListByDirectory returns the documents inside one directory. The special
// id "root" means every document whose directory is top-level.
func (r *DocumentRepositoryImpl) ListByDirectory(ctx context.Context, directoryID string) ([]*models.Document, error) {
	var documents []*models.Document

	q := r.db.WithContext(ctx).Order("created_at DESC")
	if directoryID == "root" {
		q = q.Where("directory_id IN (?)",
			r.db.Model(&models.Directory{}).Select("dir_id").Where("parent_id IS NULL"))
	} else {
		q = q.Where("directory_id = ?", directoryID)
	}

	if err := q.Find(&documents).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return documents, nil
}

func (r *DocumentRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.Document, error) {
	var documents []*models.Document
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&documents).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return documents, nil
}

// Update modifies document metadata. Only fields set in the update are touched.
func (r *DocumentRepositoryImpl) Update(ctx context.Context, id string, update *models.DocumentUpdate) (*models.Document, error) {
	var doc models.Document

	if err := r.db.WithContext(ctx).First(&doc, "doc_id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("document not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	updates := make(map[string]interface{})
	if update.DocName != nil {
		updates["doc_name"] = *update.DocName
	}
	if update.Content != nil {
		updates["content"] = *update.Content
	}
	if update.DirectoryID != nil {
		updates["directory_id"] = *update.DirectoryID
	}

	if err := r.db.WithContext(ctx).Model(&doc).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	return &doc, nil
}

// UpdateContent persists just the content column - the explicit "Save" path,
// independent of the live collaboration channel.
func (r *DocumentRepositoryImpl) UpdateContent(ctx context.Context, id, content string) (*models.Document, error) {
	var doc models.Document

	if err := r.db.WithContext(ctx).First(&doc, "doc_id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("document not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	if err := r.db.WithContext(ctx).Model(&doc).Update("content", content).Error; err != nil {
		return nil, fmt.Errorf("failed to save document content: %w", err)
	}
	return &doc, nil
}

// Move reparents a document into another directory.
func (r *DocumentRepositoryImpl) Move(ctx context.Context, id, newDirectoryID string) (*models.Document, error) {
	var dir models.Directory
	if err := r.db.WithContext(ctx).First(&dir, "dir_id = ?", newDirectoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("directory not found: %s", newDirectoryID)
		}
		return nil, fmt.Errorf("failed to find directory: %w", err)
	}

	var doc models.Document
	if err := r.db.WithContext(ctx).First(&doc, "doc_id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("document not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	if err := r.db.WithContext(ctx).Model(&doc).Update("directory_id", newDirectoryID).Error; err != nil {
		return nil, fmt.Errorf("failed to move document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Document{}, "doc_id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}
