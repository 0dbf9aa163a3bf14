// Package llm generates character profiles with a chat-completion model
// served over Groq's OpenAI-compatible API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/codefionn/charwizard/internal/character"
	"github.com/codefionn/charwizard/internal/consts"
	"github.com/codefionn/charwizard/internal/credential"
	"github.com/codefionn/charwizard/internal/logger"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrMissingAPIKey is returned when no Groq key is configured.
var ErrMissingAPIKey = errors.New("llm: Groq API key not set")

const systemPrompt = "You are a creative AI assistant that specializes in creating detailed character profiles."

const userPromptTemplate = `
You are a creative assistant helping to create a chatbot character.
Based on the following description, generate a detailed character profile:

%s

Provide the information in a JSON format with the following structure:
{
  "name": "Character's name",
  "title": "A short, catchy title (max 40 chars)",
  "persona": "A detailed personality description (200-300 words)",
  "greeting": "The first message the character says to users (50-100 words)",
  "scenario": "The setting or context of conversations (100-150 words)",
  "exampleDialogues": ["3-5 example exchanges between the character and a user"]
}

Make the character compelling, consistent, and match the description provided.
`

// GeneratorConfig configures a CharacterGenerator.
type GeneratorConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	// MaxRetries is passed to the SDK; negative keeps the SDK default.
	MaxRetries int
}

// DefaultGeneratorConfig returns the Groq defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		BaseURL:     consts.GroqBaseURL,
		Model:       consts.GroqModel,
		Temperature: consts.GroqTemperature,
		MaxTokens:   consts.GroqMaxTokens,
		MaxRetries:  -1,
	}
}

// CharacterGenerator turns descriptions into character profiles.
type CharacterGenerator struct {
	cfg        GeneratorConfig
	creds      credential.Provider
	httpClient *http.Client
	log        *logger.Logger
}

// NewCharacterGenerator creates a generator. httpClient may be nil.
func NewCharacterGenerator(cfg GeneratorConfig, creds credential.Provider, httpClient *http.Client) *CharacterGenerator {
	def := DefaultGeneratorConfig()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = def.BaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: consts.Timeout60Seconds}
	}
	return &CharacterGenerator{
		cfg:        cfg,
		creds:      creds,
		httpClient: httpClient,
		log:        logger.Global().WithPrefix("llm"),
	}
}

// SetLogger replaces the logger.
func (g *CharacterGenerator) SetLogger(l *logger.Logger) {
	if l != nil {
		g.log = l
	}
}

// Prompt renders the user prompt for a description.
func Prompt(description string) string {
	return fmt.Sprintf(userPromptTemplate, description)
}

type profilePayload struct {
	Name             string    `json:"name"`
	Title            string    `json:"title"`
	Persona          string    `json:"persona"`
	Greeting         string    `json:"greeting"`
	Scenario         string    `json:"scenario"`
	ExampleDialogues dialogues `json:"exampleDialogues"`
}

// Generate asks the model for a profile matching description.
func (g *CharacterGenerator) Generate(ctx context.Context, description string) (*character.Profile, error) {
	secret, err := credential.Resolve(ctx, g.creds)
	if err != nil {
		return nil, ErrMissingAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(secret.Reveal()),
		option.WithBaseURL(g.cfg.BaseURL),
		option.WithHTTPClient(g.httpClient),
	}
	if g.cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(g.cfg.MaxRetries))
	}
	client := openai.NewClient(opts...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Prompt(description)),
		},
		Temperature: openai.Float(g.cfg.Temperature),
		MaxTokens:   openai.Int(int64(g.cfg.MaxTokens)),
	}

	g.log.Debug("Requesting character profile from %s", g.cfg.Model)
	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return nil, fmt.Errorf("groq API error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("groq completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("groq completion returned no choices")
	}

	return ParseProfile(completion.Choices[0].Message.Content)
}

// ParseProfile decodes the first JSON object of a model reply.
func ParseProfile(reply string) (*character.Profile, error) {
	raw, err := ExtractJSONObject(reply)
	if err != nil {
		return nil, err
	}

	var payload profilePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode character profile: %w", err)
	}

	dialogues := []string(payload.ExampleDialogues)
	if dialogues == nil {
		dialogues = []string{}
	}
	return &character.Profile{
		Name:             payload.Name,
		Title:            payload.Title,
		Persona:          payload.Persona,
		Greeting:         payload.Greeting,
		Scenario:         payload.Scenario,
		ExampleDialogues: dialogues,
	}, nil
}
