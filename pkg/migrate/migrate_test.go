package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, Validate())
}

func TestValidateFS(t *testing.T) {
	ok := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"

	tests := []struct {
		name    string
		files   fstest.MapFS
		wantErr string
	}{
		{
			name: "bad filename",
			files: fstest.MapFS{
				"m/001_init.sql": {Data: []byte(ok)},
			},
			wantErr: "invalid migration filename",
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"m/20240101000000_a.sql": {Data: []byte(ok)},
				"m/20240101000000_b.sql": {Data: []byte(ok)},
			},
			wantErr: "duplicate migration version",
		},
		{
			name: "missing down",
			files: fstest.MapFS{
				"m/20240101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
			},
			wantErr: "missing \"-- +goose Down\"",
		},
		{
			name: "non sql files ignored",
			files: fstest.MapFS{
				"m/README.md":            {Data: []byte("notes")},
				"m/20240101000000_a.sql": {Data: []byte(ok)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFS(tt.files, "m")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunRequiresDB(t *testing.T) {
	assert.Error(t, Run(context.Background(), nil, "up"))
	assert.Error(t, MigrateToVersion(context.Background(), nil, ""))
	assert.Error(t, MigrateToVersion(context.Background(), nil, "abc"))
}
