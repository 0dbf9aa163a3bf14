package character

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codefionn/charwizard/internal/consts"
	"github.com/codefionn/charwizard/internal/credential"
	"github.com/codefionn/charwizard/internal/logger"
)

var (
	// ErrEmptyDescription is returned when the description has no text.
	ErrEmptyDescription = errors.New("character description is empty")
	// ErrNoImageGenerator is returned by GenerateAvatar when no image backend is configured.
	ErrNoImageGenerator = errors.New("no image generator configured")
)

// Generator produces a profile from a description.
type Generator interface {
	Generate(ctx context.Context, description string) (*Profile, error)
}

// ContentExtractor fetches the readable text of a web page.
type ContentExtractor interface {
	ExtractContent(ctx context.Context, url string) (string, error)
}

// ImageGenerator renders a prompt and returns the image URL.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Service runs the wizard operations.
type Service struct {
	generator Generator
	extractor ContentExtractor
	images    ImageGenerator
	log       *logger.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithExtractor enables URL context for descriptions.
func WithExtractor(e ContentExtractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithImageGenerator enables avatar generation.
func WithImageGenerator(g ImageGenerator) Option {
	return func(s *Service) { s.images = g }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service around gen.
func NewService(gen Generator, opts ...Option) *Service {
	s := &Service{
		generator: gen,
		log:       logger.Global().WithPrefix("character"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProfile generates a profile for desc. When desc names a URL and an
// extractor is configured, the page text is appended to the description;
// extraction failures only cost that extra context.
func (s *Service) CreateProfile(ctx context.Context, desc Description) (*Profile, error) {
	if strings.TrimSpace(desc.Text) == "" {
		return nil, ErrEmptyDescription
	}

	enhanced := s.enhance(ctx, desc)

	profile, err := s.generator.Generate(ctx, enhanced)
	if err != nil {
		s.log.Error("Error generating character: %v", err)
		return nil, fmt.Errorf("failed to generate character: %w", err)
	}
	if profile == nil {
		return nil, errors.New("failed to generate character: empty profile")
	}
	if profile.ExampleDialogues == nil {
		profile.ExampleDialogues = []string{}
	}

	s.log.Info("Generated character %q", profile.Name)
	return profile, nil
}

func (s *Service) enhance(ctx context.Context, desc Description) string {
	url := strings.TrimSpace(desc.URL)
	if url == "" || s.extractor == nil {
		return desc.Text
	}

	content, err := s.extractor.ExtractContent(ctx, url)
	if err != nil {
		s.log.Warn("Could not extract URL content, proceeding with base description only: %v", err)
		return desc.Text
	}
	return desc.Text + "\n\nAdditional context from URL:\n" + content
}

// GenerateAvatar renders a portrait for p and records its URL on p.
func (s *Service) GenerateAvatar(ctx context.Context, p *Profile) (string, error) {
	if s.images == nil {
		return "", ErrNoImageGenerator
	}

	url, err := s.images.GenerateImage(ctx, AvatarPrompt(p))
	if err != nil {
		s.log.Error("Error generating avatar: %v", err)
		return "", fmt.Errorf("failed to generate avatar: %w", err)
	}

	p.AvatarURL = url
	return url, nil
}

// AvatarPrompt builds the image prompt for a profile. Only the start of the
// persona is used.
func AvatarPrompt(p *Profile) string {
	persona := p.Persona
	if r := []rune(persona); len(r) > consts.PersonaPromptLength {
		persona = string(r[:consts.PersonaPromptLength])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "High-quality portrait of %s, a %s.\n", p.Name, p.Title)
	fmt.Fprintf(&b, "Character description: %s\n", persona)
	b.WriteString("Style: Professional, high-quality, detailed, modern, photorealistic avatar.")
	return b.String()
}

// KeysStatus reports which service keys are configured.
type KeysStatus struct {
	Runware bool `json:"runware"`
	Exa     bool `json:"exa"`
	Groq    bool `json:"groq"`
}

// CheckKeys resolves each provider without using the keys.
func CheckKeys(ctx context.Context, runware, exa, groq credential.Provider) KeysStatus {
	has := func(p credential.Provider) bool {
		_, err := credential.Resolve(ctx, p)
		return err == nil
	}
	return KeysStatus{
		Runware: has(runware),
		Exa:     has(exa),
		Groq:    has(groq),
	}
}
