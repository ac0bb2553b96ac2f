package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes to the database. The
// existence check reads pg_indexes, so this runs on Postgres only;
// other drivers rely on the AutoMigrate schema.
func AddIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Todo indexes for scope filtering and sorting
		{"todos", "idx_todos_user_project", "user_id, project_id"},
		{"todos", "idx_todos_completed", "completed"},
		{"todos", "idx_todos_category", "category"},
		{"todos", "idx_todos_priority", "priority"},
		{"todos", "idx_todos_due_date", "due_date"},
		{"todos", "idx_todos_created_at", "created_at"},

		// Project member indexes
		{"project_members", "idx_project_members_project_id", "project_id"},
		{"project_members", "idx_project_members_user_id", "user_id"},

		// Invitation lookup by recipient and status
		{"project_invitations", "idx_invitations_to_user_status", "to_user_id, status"},
	}

	for _, idx := range indexes {
		// Check if index already exists
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
