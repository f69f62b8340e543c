package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDecodesIdentityFieldNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "consumer.toml")
	writeFile(t, path, `
[Postgres]
DSN = "postgres://localhost:5432/catalog"

[Redis]
Addr = "localhost:6379"
BlockchainDataPrefix = "asset_blockchain_data"
UserDefinedPrefix = "asset_user_defined_data"
KeySeparator = ":"

[Source]
Target = "localhost:9000"
StartingHeight = 1
BatchMaxSize = 100
BatchMaxTimeMs = 5000

[Ingest]
OracleAddress = "3P_oracle"
ChainID = 87
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/catalog", cfg.Postgres.DSN)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "asset_blockchain_data", cfg.Redis.BlockchainDataPrefix)
	assert.Equal(t, int32(1), cfg.Source.StartingHeight)
	assert.Equal(t, 5*time.Second, cfg.Source.BatchMaxTime())
	assert.Equal(t, byte(87), cfg.Ingest.ChainID)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	writeFile(t, path, "[Postgres]\nTypo = \"x\"\n")

	_, err := Load(path)
	require.Error(t, err)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
