package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"

	"github.com/dmitrijs2005/stegkeeper/internal/auth"
	"github.com/dmitrijs2005/stegkeeper/internal/client/client"
	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ---- fake client ----

// fakeClient implements client.Client and records what it was asked.
type fakeClient struct {
	mu sync.Mutex

	PingErr error

	CapacityRet json.RawMessage
	CapacityErr error

	EncodeRet *client.EncodeResult
	EncodeErr error

	DecodeRet string
	DecodeErr error

	KeysRet []byte
	KeysErr error

	Calls      int
	LastKind   models.MediaKind
	LastFile   client.Upload
	LastKey    client.Upload
	LastSecret string
}

func (f *fakeClient) Ping(ctx context.Context) error {
	return f.PingErr
}

func (f *fakeClient) CheckCapacity(ctx context.Context, file client.Upload) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.LastFile = file
	return f.CapacityRet, f.CapacityErr
}

func (f *fakeClient) Encode(ctx context.Context, kind models.MediaKind, file, key client.Upload, secret string) (*client.EncodeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.LastKind, f.LastFile, f.LastKey, f.LastSecret = kind, file, key, secret
	return f.EncodeRet, f.EncodeErr
}

func (f *fakeClient) Decode(ctx context.Context, kind models.MediaKind, file, key client.Upload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.LastKind, f.LastFile, f.LastKey = kind, file, key
	return f.DecodeRet, f.DecodeErr
}

func (f *fakeClient) GenerateKeys(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	return f.KeysRet, f.KeysErr
}

// ---- fake recorder / identity ----

type recordCall struct {
	owner string
	rec   models.OperationRecord
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordCall
	err   error
}

func (f *fakeRecorder) Record(ctx context.Context, owner string, rec models.OperationRecord) (models.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordCall{owner: owner, rec: rec})
	return rec, f.err
}

type staticIdentity struct {
	owner string
}

func (s staticIdentity) Current(context.Context) (auth.Identity, bool) {
	return auth.Identity{OwnerID: s.owner}, s.owner != ""
}
