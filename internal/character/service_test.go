package character

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/codefionn/charwizard/internal/credential"
	"github.com/codefionn/charwizard/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	got     string
	profile *Profile
	err     error
}

func (g *stubGenerator) Generate(_ context.Context, description string) (*Profile, error) {
	g.got = description
	return g.profile, g.err
}

type stubExtractor struct {
	content string
	err     error
	calls   int
}

func (e *stubExtractor) ExtractContent(context.Context, string) (string, error) {
	e.calls++
	return e.content, e.err
}

type stubImages struct {
	prompt string
	url    string
	err    error
}

func (i *stubImages) GenerateImage(_ context.Context, prompt string) (string, error) {
	i.prompt = prompt
	return i.url, i.err
}

func TestCreateProfileAppendsURLContext(t *testing.T) {
	gen := &stubGenerator{profile: &Profile{Name: "Ahab"}}
	ext := &stubExtractor{content: "Captain of the Pequod."}
	svc := NewService(gen, WithExtractor(ext), WithLogger(logger.Discard()))

	p, err := svc.CreateProfile(context.Background(), Description{Text: "A sea captain", URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ahab", p.Name)
	assert.Equal(t, "A sea captain\n\nAdditional context from URL:\nCaptain of the Pequod.", gen.got)
	assert.NotNil(t, p.ExampleDialogues)
}

func TestCreateProfileIgnoresExtractionFailure(t *testing.T) {
	gen := &stubGenerator{profile: &Profile{Name: "Ahab"}}
	ext := &stubExtractor{err: errors.New("boom")}
	svc := NewService(gen, WithExtractor(ext), WithLogger(logger.Discard()))

	_, err := svc.CreateProfile(context.Background(), Description{Text: "A sea captain", URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "A sea captain", gen.got)
	assert.Equal(t, 1, ext.calls)
}

func TestCreateProfileWithoutURLSkipsExtractor(t *testing.T) {
	gen := &stubGenerator{profile: &Profile{}}
	ext := &stubExtractor{}
	svc := NewService(gen, WithExtractor(ext), WithLogger(logger.Discard()))

	_, err := svc.CreateProfile(context.Background(), Description{Text: "A sea captain", URL: "  "})
	require.NoError(t, err)
	assert.Equal(t, 0, ext.calls)
}

func TestCreateProfileErrors(t *testing.T) {
	gen := &stubGenerator{err: errors.New("rate limited")}
	svc := NewService(gen, WithLogger(logger.Discard()))

	_, err := svc.CreateProfile(context.Background(), Description{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyDescription)

	_, err = svc.CreateProfile(context.Background(), Description{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGenerateAvatar(t *testing.T) {
	images := &stubImages{url: "https://im.runware.ai/ahab.webp"}
	svc := NewService(&stubGenerator{}, WithImageGenerator(images), WithLogger(logger.Discard()))

	p := &Profile{Name: "Ahab", Title: "Obsessed Captain", Persona: strings.Repeat("é", 400)}
	url, err := svc.GenerateAvatar(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "https://im.runware.ai/ahab.webp", url)
	assert.Equal(t, url, p.AvatarURL)

	assert.Contains(t, images.prompt, "High-quality portrait of Ahab, a Obsessed Captain.")
	assert.Contains(t, images.prompt, "Character description: "+strings.Repeat("é", 300)+"\n")
	assert.NotContains(t, images.prompt, strings.Repeat("é", 301))
}

func TestGenerateAvatarFailures(t *testing.T) {
	svc := NewService(&stubGenerator{}, WithLogger(logger.Discard()))
	_, err := svc.GenerateAvatar(context.Background(), &Profile{})
	assert.ErrorIs(t, err, ErrNoImageGenerator)

	images := &stubImages{err: errors.New("bad prompt")}
	svc = NewService(&stubGenerator{}, WithImageGenerator(images), WithLogger(logger.Discard()))
	p := &Profile{Name: "x"}
	_, err = svc.GenerateAvatar(context.Background(), p)
	require.Error(t, err)
	assert.Empty(t, p.AvatarURL)
}

func TestCheckKeys(t *testing.T) {
	status := CheckKeys(context.Background(), credential.Static("r"), credential.Static(""), nil)
	assert.Equal(t, KeysStatus{Runware: true}, status)
}

func TestStepNavigation(t *testing.T) {
	assert.Equal(t, StepDetails, StepDescription.Next())
	assert.Equal(t, StepPreview, StepAvatar.Next())
	assert.Equal(t, StepPreview, StepPreview.Next())
	assert.Equal(t, StepDescription, StepDescription.Previous())
	assert.Equal(t, StepAvatar, StepPreview.Previous())
	assert.Equal(t, "avatar", StepAvatar.String())

	s, err := ParseStep(" Preview ")
	require.NoError(t, err)
	assert.Equal(t, StepPreview, s)
	_, err = ParseStep("nope")
	assert.Error(t, err)
}
