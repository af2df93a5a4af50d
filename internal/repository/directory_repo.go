package repository

import (
	"context"
	"fmt"

	"collabdocs/internal/models"

	"gorm.io/gorm"
)

// DirectoryRepositoryImpl handles database operations for workspace folders.
type DirectoryRepositoryImpl struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepositoryImpl {
	return &DirectoryRepositoryImpl{db: db}
}

// Create inserts a new directory. Directory names are unique per user to
// keep the sidebar unambiguous.
func (r *DirectoryRepositoryImpl) Create(ctx context.Context, in *models.DirectoryCreate) (*models.Directory, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Directory{}).
		Where("user_id = ? AND dir_name = ?", in.UserID, in.DirName).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check directory name: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("directory %q already exists", in.DirName)
	}

	dir := &models.Directory{
		DirName:  in.DirName,
		UserID:   in.UserID,
		ParentID: in.ParentID,
		Color:    in.Color,
	}
	if err := r.db.WithContext(ctx).Create(dir).Error; err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return dir, nil
}

func (r *DirectoryRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Directory, error) {
	var dir models.Directory

	err := r.db.WithContext(ctx).First(&dir, "dir_id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("directory not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get directory: %w", err)
	}
	return &dir, nil
}

func (r *DirectoryRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.Directory, error) {
	var directories []*models.Directory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("dir_name ASC").
		Find(&directories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}
	return directories, nil
}

func (r *DirectoryRepositoryImpl) Update(ctx context.Context, id string, update *models.DirectoryUpdate) (*models.Directory, error) {
	var dir models.Directory

	if err := r.db.WithContext(ctx).First(&dir, "dir_id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("directory not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find directory: %w", err)
	}

	updates := make(map[string]interface{})
	if update.DirName != nil {
		updates["dir_name"] = *update.DirName
	}
	if update.ParentID != nil {
		updates["parent_id"] = *update.ParentID
	}
	if update.Color != nil {
		updates["color"] = *update.Color
	}
	if update.Starred != nil {
		updates["starred"] = *update.Starred
	}

	if err := r.db.WithContext(ctx).Model(&dir).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update directory: %w", err)
	}
	return &dir, nil
}

// Delete removes a directory. Documents and child directories cascade via
// application-level cleanup: children are reparented nowhere, they go too.
func (r *DirectoryRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result, err := deleteTree(tx, id)
		if err != nil {
			return err
		}
		if result == 0 {
			return fmt.Errorf("directory not found: %s", id)
		}
		return nil
	})
}

// deleteTree removes a directory subtree inside one transaction, documents
// first, depth-first. Returns the number of directories removed at the root
// level so the caller can report "not found".
func deleteTree(tx *gorm.DB, id string) (int64, error) {
	if err := tx.Delete(&models.Document{}, "directory_id = ?", id).Error; err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}

	var children []models.Directory
	if err := tx.Find(&children, "parent_id = ?", id).Error; err != nil {
		return 0, fmt.Errorf("failed to list children: %w", err)
	}
	for _, child := range children {
		if _, err := deleteTree(tx, child.DirID); err != nil {
			return 0, err
		}
	}

	result := tx.Delete(&models.Directory{}, "dir_id = ?", id)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete directory: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Tree assembles the nested folder/document tree for one user, the shape
// the workspace sidebar renders.
func (r *DirectoryRepositoryImpl) Tree(ctx context.Context, userID uint) ([]*models.TreeNode, error) {
	var directories []*models.Directory
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&directories).Error; err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}

	var documents []*models.Document
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&documents).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	nodes := make(map[string]*models.TreeNode, len(directories))
	for _, dir := range directories {
		nodes[dir.DirID] = &models.TreeNode{
			ID:        dir.DirID,
			Name:      dir.DirName,
			Type:      "folder",
			ParentID:  dir.ParentID,
			Color:     dir.Color,
			Starred:   dir.Starred,
			CreatedAt: dir.CreatedAt,
			UpdatedAt: dir.UpdatedAt,
		}
	}

	var roots []*models.TreeNode
	for _, node := range nodes {
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	for _, doc := range documents {
		leaf := &models.TreeNode{
			ID:        doc.DocID,
			Name:      doc.DocName,
			Type:      "document",
			ParentID:  &doc.DirectoryID,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		}
		if parent, ok := nodes[doc.DirectoryID]; ok {
			parent.Children = append(parent.Children, leaf)
		} else {
			roots = append(roots, leaf)
		}
	}

	return roots, nil
}
