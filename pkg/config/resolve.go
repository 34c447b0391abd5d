package config

import (
	"os"
)

// Environment variables consulted by Resolve.
const (
	EnvBackendURL    = "PAGEPILOT_BACKEND_URL"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
)

// Overrides holds values given on the command line. Empty fields and nil
// pointers mean "not set".
type Overrides struct {
	BackendURL string
	ListenAddr string
	Headless   *bool
	StartURLs  []string
	LLMModel   string
	LLMBaseURL string
	LLMAPIKey  string
}

// Settings is the fully resolved runtime configuration.
type Settings struct {
	Backend BackendSettings
	Bridge  BridgeSettings
	Browser BrowserSettings
	LLM     LLMSettings
}

// LLMSettings is the resolved classifier model configuration.
type LLMSettings struct {
	Model   string
	BaseURL string
	APIKey  string
}

// Enabled reports whether an API key was resolved.
func (s LLMSettings) Enabled() bool {
	return s.APIKey != ""
}

// Resolve merges settings with precedence:
// CLI flags > environment variables > config file > defaults.
// A nil manager contributes defaults only.
func Resolve(m *Manager, o Overrides) Settings {
	backend := NewBackendSection()
	bridge := NewBridgeSection()
	browser := NewBrowserSection()
	llm := NewLLMSection()

	if m != nil {
		if s, ok := m.GetSection(SectionIDBackend); ok {
			if b, ok := s.(*BackendSection); ok {
				backend = b
			}
		}
		if s, ok := m.GetSection(SectionIDBridge); ok {
			if b, ok := s.(*BridgeSection); ok {
				bridge = b
			}
		}
		if s, ok := m.GetSection(SectionIDBrowser); ok {
			if b, ok := s.(*BrowserSection); ok {
				browser = b
			}
		}
		if s, ok := m.GetSection(SectionIDLLM); ok {
			if l, ok := s.(*LLMSection); ok {
				llm = l
			}
		}
	}

	out := Settings{
		Backend: backend.Snapshot(),
		Bridge:  bridge.Snapshot(),
		Browser: browser.Snapshot(),
		LLM: LLMSettings{
			Model:   llm.GetModel(),
			BaseURL: llm.GetBaseURL(),
			APIKey:  llm.GetAPIKey(),
		},
	}

	out.Backend.BaseURL = firstNonEmpty(o.BackendURL, os.Getenv(EnvBackendURL), out.Backend.BaseURL)
	out.Bridge.ListenAddr = firstNonEmpty(o.ListenAddr, out.Bridge.ListenAddr)
	if o.Headless != nil {
		out.Browser.Headless = *o.Headless
	}
	if len(o.StartURLs) > 0 {
		out.Browser.StartURLs = append([]string(nil), o.StartURLs...)
	}
	out.LLM.Model = firstNonEmpty(o.LLMModel, out.LLM.Model)
	out.LLM.BaseURL = firstNonEmpty(o.LLMBaseURL, os.Getenv(EnvOpenAIBaseURL), out.LLM.BaseURL)
	out.LLM.APIKey = firstNonEmpty(o.LLMAPIKey, os.Getenv(EnvOpenAIAPIKey), out.LLM.APIKey)

	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
