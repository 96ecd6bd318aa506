package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thornbury/seedling/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func scanBackup(scanner interface{ Scan(...any) error }) (*model.Backup, error) {
	var b model.Backup
	var startedAt, completedAt sql.NullTime
	err := scanner.Scan(
		&b.ID, &b.FamilyID, &b.Filename, &b.S3Key, &b.SizeBytes, &b.Status,
		&b.ErrorMessage, &startedAt, &completedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		b.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

const backupCols = `id, family_id, filename, s3_key, size_bytes, status, error_message, started_at, completed_at, created_at, updated_at`

func (s *BackupStore) Create(familyID int64, filename, s3Key string) (*model.Backup, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO backups (family_id, filename, s3_key, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		familyID, filename, s3Key, model.BackupStatusPending, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BackupStore) GetByID(id int64) (*model.Backup, error) {
	row := s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	return b, nil
}

func (s *BackupStore) UpdateStatus(id int64, status model.BackupStatus, errorMessage string) error {
	_, err := s.db.Exec(
		`UPDATE backups SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, errorMessage, id,
	)
	if err != nil {
		return fmt.Errorf("update backup status: %w", err)
	}
	return nil
}

func (s *BackupStore) UpdateCompleted(id, sizeBytes int64) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE backups SET status = ?, size_bytes = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.BackupStatusCompleted, sizeBytes, now, id,
	)
	if err != nil {
		return fmt.Errorf("update backup completed: %w", err)
	}
	return nil
}

func (s *BackupStore) ListByFamily(familyID int64, limit int) ([]model.Backup, error) {
	rows, err := s.db.Query(
		`SELECT `+backupCols+` FROM backups WHERE family_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		familyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

func (s *BackupStore) LatestCompleted(familyID int64) (*model.Backup, error) {
	row := s.db.QueryRow(
		`SELECT `+backupCols+` FROM backups
		 WHERE family_id = ? AND status = ?
		 ORDER BY completed_at DESC, id DESC LIMIT 1`,
		familyID, model.BackupStatusCompleted,
	)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest backup: %w", err)
	}
	return b, nil
}

// DeleteOlderThan removes backup records past the retention cutoff and
// returns their S3 keys so the caller can delete the objects too.
func (s *BackupStore) DeleteOlderThan(familyID int64, cutoff time.Time) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT s3_key FROM backups WHERE family_id = ? AND created_at < ?`,
		familyID, cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query old backups: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan s3 key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`DELETE FROM backups WHERE family_id = ? AND created_at < ?`, familyID, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return keys, nil
}

func (s *BackupStore) CountByFamily(familyID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM backups WHERE family_id = ?`, familyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count backups: %w", err)
	}
	return n, nil
}

func (s *BackupStore) TotalSizeByFamily(familyID int64) (int64, error) {
	var size sql.NullInt64
	err := s.db.QueryRow(
		`SELECT SUM(size_bytes) FROM backups WHERE family_id = ? AND status = ?`,
		familyID, model.BackupStatusCompleted,
	).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("sum backup sizes: %w", err)
	}
	if !size.Valid {
		return 0, nil
	}
	return size.Int64, nil
}

// DefaultFamilyID returns the first family, for attributing whole-database
// backups in single-family installs.
func (s *BackupStore) DefaultFamilyID() (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM families ORDER BY id LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query default family: %w", err)
	}
	return id, nil
}
