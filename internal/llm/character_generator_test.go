package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codefionn/charwizard/internal/credential"
	"github.com/codefionn/charwizard/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "llama3-8b-8192",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]interface{}{"role": "assistant", "content": content},
		}},
	}
}

func newTestGenerator(t *testing.T, key string, handler http.HandlerFunc) *CharacterGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultGeneratorConfig()
	cfg.BaseURL = srv.URL
	cfg.MaxRetries = 0
	g := NewCharacterGenerator(cfg, credential.Static(key), srv.Client())
	g.SetLogger(logger.Discard())
	return g
}

func TestGenerateSendsGroqRequest(t *testing.T) {
	reply := "Here you go!\n```json\n" + `{
		"name": "Captain Zara",
		"title": "Witty Space Explorer",
		"persona": "Dry humour.",
		"greeting": "Hello, traveller.",
		"scenario": "Aboard the Starwake.",
		"exampleDialogues": ["User: Hi\nZara: Hello."]
	}` + "\n```"

	g := newTestGenerator(t, "groq-key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer groq-key", r.Header.Get("Authorization"))

		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3-8b-8192", body.Model)
		assert.InDelta(t, 0.7, body.Temperature, 1e-9)
		assert.Equal(t, 2048, body.MaxTokens)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, systemPrompt, body.Messages[0].Content)
		assert.Equal(t, "user", body.Messages[1].Role)
		assert.Contains(t, body.Messages[1].Content, "A witty space explorer")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionBody(reply))
	})

	p, err := g.Generate(context.Background(), "A witty space explorer")
	require.NoError(t, err)
	assert.Equal(t, "Captain Zara", p.Name)
	assert.Equal(t, "Witty Space Explorer", p.Title)
	assert.Equal(t, []string{"User: Hi\nZara: Hello."}, p.ExampleDialogues)
	assert.Empty(t, p.AvatarURL)
}

func TestGenerateReplyWithoutJSON(t *testing.T) {
	g := newTestGenerator(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionBody("I cannot do that."))
	})

	_, err := g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestGenerateAPIError(t *testing.T) {
	g := newTestGenerator(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	})

	_, err := g.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestGenerateMissingKey(t *testing.T) {
	called := false
	g := newTestGenerator(t, "", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, called)
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		dialogues []string
	}{
		{"missing dialogues", `{"name":"A"}`, []string{}},
		{"null dialogues", `{"name":"A","exampleDialogues":null}`, []string{}},
		{"single string", `{"name":"A","exampleDialogues":"User: hi"}`, []string{"User: hi"}},
		{"object entries", `{"name":"A","exampleDialogues":[{"user":"hi","character":"hello"}]}`, []string{`{"user":"hi","character":"hello"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProfile("prefix " + tt.reply + " suffix")
			require.NoError(t, err)
			assert.Equal(t, "A", p.Name)
			assert.Equal(t, tt.dialogues, p.ExampleDialogues)
		})
	}

	_, err := ParseProfile(`{"name": }`)
	assert.Error(t, err)
}

func TestExtractJSONObject(t *testing.T) {
	got, err := ExtractJSONObject("text {\"a\":{\"b\":1}} trailing")
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":1}}`, got)

	_, err = ExtractJSONObject("no braces")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestPromptEmbedsDescription(t *testing.T) {
	p := Prompt("A grumpy wizard")
	assert.Contains(t, p, "A grumpy wizard")
	assert.Contains(t, p, `"exampleDialogues"`)
}
