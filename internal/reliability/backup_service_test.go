package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	testutil "github.com/aristath/stockfolio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func untar(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = body
	}
	return files
}

func TestCreateAndUploadBackup(t *testing.T) {
	db := testutil.NewTestDB(t)
	h := testutil.NewHolding("AAPL", "10", "150", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	h.UserID = 1
	testutil.InsertHolding(t, db, h)

	store := newMemStore()
	svc := NewBackupService(db, store, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC) }

	key, err := svc.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "holdings-backup-2024-06-01-123045.tar.gz", key)

	files := untar(t, store.objects[key])
	require.Contains(t, files, metadataFile)
	require.Contains(t, files, "holdings.db")

	var meta BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFile], &meta))
	assert.Equal(t, "holdings", meta.Database)
	assert.Equal(t, int64(len(files["holdings.db"])), meta.SizeBytes)
	assert.True(t, strings.HasPrefix(meta.Checksum, "sha256:"))
	// SQLite files start with a fixed header
	assert.True(t, bytes.HasPrefix(files["holdings.db"], []byte("SQLite format 3")))
}

func TestRotateOldBackups(t *testing.T) {
	store := newMemStore()
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	for _, days := range []int{1, 2, 3, 40, 50} {
		key := backupPrefix + now.AddDate(0, 0, -days).Format(timestampFormat) + backupSuffix
		store.objects[key] = []byte("x")
	}
	store.objects["holdings-backup-garbage.tar.gz"] = []byte("x")

	svc := NewBackupService(nil, store, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return now }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 5)
	assert.True(t, backups[0].Timestamp.After(backups[1].Timestamp))

	deleted, err := svc.RotateOldBackups(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Len(t, store.keys(), 4) // three recent plus the unparsable key

	deleted, err = svc.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestRotateKeepsMinimum(t *testing.T) {
	store := newMemStore()
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	for _, days := range []int{100, 200, 300} {
		store.objects[backupPrefix+now.AddDate(0, 0, -days).Format(timestampFormat)+backupSuffix] = []byte("x")
	}

	svc := NewBackupService(nil, store, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return now }

	deleted, err := svc.RotateOldBackups(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.keys(), 3)
}
