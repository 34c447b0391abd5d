package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetGlobal clears the global manager for the duration of a test.
func resetGlobal(t *testing.T) {
	t.Helper()
	globalMu.Lock()
	prev := globalManager
	globalManager = nil
	globalMu.Unlock()

	t.Cleanup(func() {
		globalMu.Lock()
		globalManager = prev
		globalMu.Unlock()
	})
}

func TestInitialize(t *testing.T) {
	resetGlobal(t)
	assert.False(t, IsInitialized())
	assert.Nil(t, GetBackend())
	assert.Panics(t, func() { Global() })

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `sections:
  backend:
    base_url: https://api.example.com
    summary_max_length: 120
  llm:
    model: gpt-4o-mini
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	require.NoError(t, Initialize(path))
	assert.True(t, IsInitialized())

	assert.Equal(t, "https://api.example.com", GetBackend().Snapshot().BaseURL)
	assert.Equal(t, 120, GetBackend().Snapshot().SummaryMaxLength)
	assert.Equal(t, DefaultListenAddr, GetBridge().Snapshot().ListenAddr)
	assert.True(t, GetBrowser().Snapshot().Headless)
	assert.Equal(t, "gpt-4o-mini", GetLLM().GetModel())

	ids := []string{}
	for _, s := range Global().GetSections() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"backend", "bridge", "browser", "llm"}, ids)
}

func TestInitialize_InvalidFile(t *testing.T) {
	resetGlobal(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))

	assert.Error(t, Initialize(path))
	assert.False(t, IsInitialized())
}

func TestDefaultsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	m, err := NewDefaultManager(store)
	require.NoError(t, err)
	require.NoError(t, m.SaveAll())

	reloaded, err := NewFileStore(path)
	require.NoError(t, err)
	m2, err := NewDefaultManager(reloaded)
	require.NoError(t, err)
	require.NoError(t, m2.LoadAll())

	settings := Resolve(m2, Overrides{})
	assert.Equal(t, DefaultBackendTimeout, settings.Backend.Timeout)
	assert.Equal(t, DefaultPingInterval, settings.Bridge.PingInterval)
	assert.Equal(t, DefaultRequestTimeout, settings.Bridge.RequestTimeout)
}

func TestResolve_Precedence(t *testing.T) {
	t.Setenv(EnvBackendURL, "")
	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvOpenAIBaseURL, "")

	m, err := NewDefaultManager(newMockStore())
	require.NoError(t, err)
	backend, _ := m.GetSection(SectionIDBackend)
	require.NoError(t, backend.SetData(map[string]interface{}{"base_url": "https://file.example/api"}))
	llm, _ := m.GetSection(SectionIDLLM)
	require.NoError(t, llm.SetData(map[string]interface{}{"api_key": "file-key", "model": "file-model"}))

	t.Run("defaults only", func(t *testing.T) {
		s := Resolve(nil, Overrides{})
		assert.Equal(t, DefaultBackendURL, s.Backend.BaseURL)
		assert.False(t, s.LLM.Enabled())
	})

	t.Run("file over defaults", func(t *testing.T) {
		s := Resolve(m, Overrides{})
		assert.Equal(t, "https://file.example/api", s.Backend.BaseURL)
		assert.Equal(t, "file-key", s.LLM.APIKey)
		assert.Equal(t, "file-model", s.LLM.Model)
		assert.True(t, s.LLM.Enabled())
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv(EnvBackendURL, "https://env.example/api")
		t.Setenv(EnvOpenAIAPIKey, "env-key")
		s := Resolve(m, Overrides{})
		assert.Equal(t, "https://env.example/api", s.Backend.BaseURL)
		assert.Equal(t, "env-key", s.LLM.APIKey)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv(EnvBackendURL, "https://env.example/api")
		headless := false
		s := Resolve(m, Overrides{
			BackendURL: "https://flag.example/api",
			ListenAddr: "127.0.0.1:9999",
			Headless:   &headless,
			StartURLs:  []string{"https://example.com"},
			LLMAPIKey:  "flag-key",
		})
		assert.Equal(t, "https://flag.example/api", s.Backend.BaseURL)
		assert.Equal(t, "127.0.0.1:9999", s.Bridge.ListenAddr)
		assert.False(t, s.Browser.Headless)
		assert.Equal(t, []string{"https://example.com"}, s.Browser.StartURLs)
		assert.Equal(t, "flag-key", s.LLM.APIKey)
	})
}

func TestGlobal_ConcurrentAccess(t *testing.T) {
	resetGlobal(t)
	require.NoError(t, Initialize(filepath.Join(t.TempDir(), "c.json")))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = GetBackend().Snapshot()
			_ = GetBridge().Snapshot()
			_ = Resolve(Global(), Overrides{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 30*time.Second, GetBackend().Snapshot().Timeout)
}
