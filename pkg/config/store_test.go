package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("/x/config.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("/x/config.YML"))
	assert.Equal(t, FormatJSON, FormatForPath("/x/config.json"))
	assert.Equal(t, FormatJSON, FormatForPath("/x/config"))
}

func TestNewFileStore_DefaultPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	store, err := NewFileStore("")
	require.NoError(t, err)

	want, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, want, store.Path())
	assert.Equal(t, FormatYAML, store.Format())
	assert.False(t, store.IsModified())
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)

	all, err := store.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)

	section, err := store.GetSection("anything")
	require.NoError(t, err)
	assert.NotNil(t, section)
	assert.Empty(t, section)
}

func TestFileStore_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			store, err := NewFileStore(path)
			require.NoError(t, err)

			require.NoError(t, store.SetSection("backend", map[string]interface{}{
				"base_url":           "https://api.example.com",
				"summary_max_length": 150,
			}))
			assert.True(t, store.IsModified())
			require.NoError(t, store.Save())
			assert.False(t, store.IsModified())

			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

			reloaded, err := NewFileStore(path)
			require.NoError(t, err)
			section, err := reloaded.GetSection("backend")
			require.NoError(t, err)
			assert.Equal(t, "https://api.example.com", section["base_url"])

			length, ok, err := intValue(section, "summary_max_length")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 150, length)
		})
	}
}

func TestFileStore_LoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	doc := `version: "1.0"
sections:
  browser:
    headless: false
    start_urls:
      - https://example.com
      - https://news.example.com
  bridge:
    ping_interval: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	browser, _ := store.GetSection("browser")
	assert.Equal(t, false, browser["headless"])
	urls, ok, err := stringSliceValue(browser, "start_urls")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"https://example.com", "https://news.example.com"}, urls)

	bridge, _ := store.GetSection("bridge")
	assert.Equal(t, "5s", bridge["ping_interval"])
}

func TestFileStore_InvalidFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{invalid json}"), 0600))
	_, err := NewFileStore(jsonPath)
	assert.Error(t, err)

	yamlPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("sections: [unclosed"), 0600))
	_, err = NewFileStore(yamlPath)
	assert.Error(t, err)
}

func TestFileStore_CopiesAreIsolated(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "c.json"))
	require.NoError(t, err)

	input := map[string]interface{}{"k": "v"}
	require.NoError(t, store.SetSection("s", input))
	input["k"] = "changed"

	got, _ := store.GetSection("s")
	assert.Equal(t, "v", got["k"])
	got["k"] = "mutated"

	all, _ := store.GetAll()
	assert.Equal(t, "v", all["s"]["k"])

	require.NoError(t, store.SetAll(map[string]map[string]interface{}{"t": {"x": 1}}))
	all, _ = store.GetAll()
	assert.Len(t, all, 1)
	assert.Equal(t, 1, all["t"]["x"])
}
