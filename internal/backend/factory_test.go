package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presupuesto/internal/config"
	"presupuesto/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		DataBackend:     config.BackendMongo,
		StorageKey:      "k",
		MongoURI:        "mongodb://localhost:27017",
		MongoDB:         "presupuesto",
		MongoCollection: "ledgers",
	}
	cfg, err := FromAppConfig(appCfg)
	require.NoError(t, err)
	assert.Equal(t, MongoBackend, cfg.Type)
	assert.Equal(t, "presupuesto", cfg.MongoDB)
	assert.NoError(t, cfg.Validate())

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"memory seed without key", Config{Type: MemoryBackend, MemorySeedFile: "x.json"}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"mongo without uri", Config{Type: MongoBackend, MongoDB: "d", MongoCollection: "c"}, true},
		{"mongo without collection", Config{Type: MongoBackend, MongoURI: "mongodb://h", MongoDB: "d"}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateMemoryBackendFromSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"2025-08":{}}`), 0o600))

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:           MemoryBackend,
		MemorySeedFile: path,
		StorageKey:     "organizadorFinanciero",
	})
	require.NoError(t, err)
	defer res.Cleanup()

	got, err := res.Store.Get(context.Background(), "organizadorFinanciero")
	require.NoError(t, err)
	assert.JSONEq(t, `{"2025-08":{}}`, string(got))
	assert.NoError(t, res.Pinger.Ping(context.Background()))
}

func TestCreateSQLiteBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "sub", "presupuesto.db"),
	})
	require.NoError(t, err)
	defer res.Cleanup()

	ctx := context.Background()
	require.NoError(t, res.Store.Put(ctx, "k", []byte(`{}`)))
	got, err := res.Store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))
	assert.NoError(t, res.Pinger.Ping(ctx))

	sqlite, ok := res.Store.(*storage.SQLiteStore)
	require.True(t, ok)
	assert.Equal(t, uint(2), sqlite.SchemaVersion())
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.Error(t, err)
}
