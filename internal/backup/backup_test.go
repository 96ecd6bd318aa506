package backup

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/thornbury/seedling/internal/database"
	"github.com/thornbury/seedling/internal/model"
	"github.com/thornbury/seedling/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	delErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

const testPassphrase = "test-passphrase-123"

// setupBackupManager opens a real file-backed database and wires a Manager
// to a mock S3 client.
func setupBackupManager(t *testing.T) (*Manager, *mockS3Client, *sql.DB, *store.BackupStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "seedling.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bs := store.NewBackupStore(db)
	cfg := Config{
		S3:         S3Config{Bucket: "test-bucket", Region: "auto", AccessKey: "key", SecretKey: "secret"},
		DBPath:     dbPath,
		Passphrase: testPassphrase,
	}
	m := NewManager(cfg, db, bs, nil, slog.Default())
	mock := newMockS3()
	m.client = mock
	return m, mock, db, bs
}

func TestManagerStateLifecycle(t *testing.T) {
	// Without S3 config -> disabled
	m := NewManager(Config{}, nil, nil, nil, slog.Default())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}

	// S3 config but no passphrase -> still disabled
	m2 := NewManager(Config{
		S3: S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
	}, nil, nil, nil, slog.Default())
	if m2.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q without passphrase", m2.Status().State, StateDisabled)
	}

	// Full config -> idle
	m3 := NewManager(Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "secret phrase",
	}, nil, nil, nil, slog.Default())
	if m3.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m3.Status().State, StateIdle)
	}
}

func TestManagerStatusCallback(t *testing.T) {
	var received []Status
	var mu sync.Mutex
	cb := func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	m := NewManager(Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "secret phrase",
	}, nil, nil, cb, slog.Default())

	m.setStatus(Status{State: StateRunning, InProgress: true})
	m.setStatus(Status{State: StateIdle})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d callbacks, want 2", len(received))
	}
	if received[0].State != StateRunning {
		t.Errorf("first callback state = %q, want %q", received[0].State, StateRunning)
	}
	if received[1].State != StateIdle {
		t.Errorf("second callback state = %q, want %q", received[1].State, StateIdle)
	}
}

func TestManagerStopSafety(t *testing.T) {
	m := NewManager(Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "secret phrase",
	}, nil, nil, nil, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, slog.Default())

	ctx := context.Background()
	m.Start(ctx) // should be a no-op for disabled state

	// Stop should not block
	m.Stop()
}

func TestRunNowUnconfigured(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, slog.Default())

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error when backup is not configured")
	}
}

func TestBackupRoundTrip(t *testing.T) {
	m, mock, db, bs := setupBackupManager(t)

	if _, err := db.Exec(`INSERT INTO families (name, timezone) VALUES ('Thornbury', 'UTC')`); err != nil {
		t.Fatalf("insert family: %v", err)
	}

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	record, err := bs.GetByID(id)
	if err != nil {
		t.Fatalf("get backup record: %v", err)
	}
	if record == nil {
		t.Fatal("expected backup record")
	}
	if record.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want %q", record.Status, model.BackupStatusCompleted)
	}
	if record.SizeBytes == 0 {
		t.Error("expected non-zero backup size")
	}
	if record.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	// The uploaded object decrypts back to a SQLite database
	data, ok := mock.object(record.S3Key)
	if !ok {
		t.Fatalf("expected object at %s", record.S3Key)
	}

	dir := t.TempDir()
	encPath := filepath.Join(dir, "download.enc")
	decPath := filepath.Join(dir, "restored.db")
	if err := os.WriteFile(encPath, data, 0600); err != nil {
		t.Fatalf("write downloaded object: %v", err)
	}
	if err := DecryptFile(encPath, decPath, testPassphrase); err != nil {
		t.Fatalf("decrypt backup: %v", err)
	}
	plain, _ := os.ReadFile(decPath)
	if !bytes.HasPrefix(plain, []byte("SQLite format 3")) {
		t.Error("decrypted backup is not a SQLite database")
	}

	if m.Status().State != StateIdle {
		t.Errorf("state after backup = %q, want %q", m.Status().State, StateIdle)
	}
	if m.Status().LastBackup == nil {
		t.Error("expected LastBackup to be set")
	}
}

func TestDownload(t *testing.T) {
	m, mock, db, bs := setupBackupManager(t)

	if _, err := db.Exec(`INSERT INTO families (name, timezone) VALUES ('Thornbury', 'UTC')`); err != nil {
		t.Fatalf("insert family: %v", err)
	}

	id, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	record, _ := bs.GetByID(id)

	body, size, err := m.Download(context.Background(), id)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if int64(len(data)) != size {
		t.Errorf("downloaded %d bytes, want %d", len(data), size)
	}

	want, _ := mock.object(record.S3Key)
	if !bytes.Equal(data, want) {
		t.Error("downloaded bytes differ from stored object")
	}
}

func TestDownloadMissingRecord(t *testing.T) {
	m, _, _, _ := setupBackupManager(t)

	if _, _, err := m.Download(context.Background(), 999); err == nil {
		t.Fatal("expected error for missing backup record")
	}
}

func TestCleanupDeletesOldBackups(t *testing.T) {
	m, mock, db, bs := setupBackupManager(t)

	if _, err := db.Exec(`INSERT INTO families (name, timezone) VALUES ('Thornbury', 'UTC')`); err != nil {
		t.Fatalf("insert family: %v", err)
	}

	// Recent backup stays
	recentID, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run recent backup: %v", err)
	}
	recent, _ := bs.GetByID(recentID)

	// Old backup: real record plus object, backdated past retention
	old, err := bs.Create(1, "old.db.enc", "1/old.db.enc")
	if err != nil {
		t.Fatalf("create old record: %v", err)
	}
	if err := bs.UpdateCompleted(old.ID, 10); err != nil {
		t.Fatalf("complete old record: %v", err)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -40)
	if _, err := db.Exec(`UPDATE backups SET created_at = ? WHERE id = ?`, cutoff, old.ID); err != nil {
		t.Fatalf("backdate old record: %v", err)
	}
	mock.mu.Lock()
	mock.objects["1/old.db.enc"] = []byte("old data")
	mock.mu.Unlock()

	if err := m.Cleanup(context.Background(), 1, 30); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if _, ok := mock.object("1/old.db.enc"); ok {
		t.Error("expected old object to be deleted from S3")
	}
	if _, ok := mock.object(recent.S3Key); !ok {
		t.Error("expected recent object to survive cleanup")
	}

	gone, err := bs.GetByID(old.ID)
	if err != nil {
		t.Fatalf("get old record: %v", err)
	}
	if gone != nil {
		t.Error("expected old backup record to be deleted")
	}
}
