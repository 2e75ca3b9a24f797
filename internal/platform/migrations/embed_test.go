package migrations

import (
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	require.NoError(t, err)

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_registration.sql", files[0])

	for _, name := range files {
		raw, err := fs.ReadFile(FS, name)
		require.NoError(t, err)
		body := string(raw)
		assert.True(t, strings.HasPrefix(body, "-- +goose Up"), "%s must start with a goose Up annotation", name)
		assert.Contains(t, body, "-- +goose Down", name)
	}
}

func TestSubmittedVersionsAreImmutable(t *testing.T) {
	raw, err := fs.ReadFile(FS, "002_reporting.sql")
	require.NoError(t, err)
	for _, table := range []string{
		"erc.report_product", "erc.report_emission",
		"erc.report_emission_allocation", "erc.report_product_emission_allocation",
	} {
		assert.Contains(t, string(raw), "ON "+table+"\n", "missing immutability trigger on %s", table)
	}
}
