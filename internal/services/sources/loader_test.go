package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadFromDirTOMLAndYAML(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "state-data.toml", `
id = "state-data"
name = "state-data"
title = "State Data Portal"
url = "https://data.example.org"
owner_org = "local-org"
schedule = "0 3 * * *"
config = '{"remote_groups": "only_local"}'
`)
	writeSource(t, dir, "city-data.yaml", `
url: https://city.example.org
owner_org: city-org
`)
	writeSource(t, dir, "notes.txt", "not a source")

	loaded, err := LoadFromDir(dir, arbor.NewLogger())
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byID := map[string]bool{}
	for _, source := range loaded {
		byID[source.ID] = true
	}
	assert.True(t, byID["state-data"])
	assert.True(t, byID["city-data"], "id defaults to the file name")
}

func TestLoadFromDirDefaultsFromFileName(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "geo-portal.yaml", "url: https://geo.example.org\n")

	loaded, err := LoadFromDir(dir, arbor.NewLogger())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "geo-portal", loaded[0].ID)
	assert.Equal(t, "geo-portal", loaded[0].Name)
	assert.Equal(t, "geo-portal", loaded[0].Title)
}

func TestLoadFromDirSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "good.toml", `url = "https://data.example.org"`)
	writeSource(t, dir, "no-url.toml", `title = "broken"`)
	writeSource(t, dir, "bad-config.toml", `
url = "https://data.example.org"
config = '{"remote_groups": "bogus"}'
`)
	writeSource(t, dir, "bad-syntax.toml", "== not toml ==")

	loaded, err := LoadFromDir(dir, arbor.NewLogger())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "good", loaded[0].ID)
}

func TestLoadFromDirDuplicateIDKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.toml", `
id = "same"
url = "https://first.example.org"
`)
	writeSource(t, dir, "b.toml", `
id = "same"
url = "https://second.example.org"
`)

	loaded, err := LoadFromDir(dir, arbor.NewLogger())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "https://first.example.org", loaded[0].URL)
}

func TestLoadFromDirMissingDir(t *testing.T) {
	loaded, err := LoadFromDir(filepath.Join(t.TempDir(), "nope"), arbor.NewLogger())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
