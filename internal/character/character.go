// Package character holds the character-profile types and the wizard service
// that turns a free-text description into a profile with an avatar.
package character

import (
	"fmt"
	"strings"
)

// Description is the user's input for a new character.
type Description struct {
	Text string `json:"text"`
	// URL optionally points at a page with more context about the character.
	URL string `json:"url,omitempty"`
}

// Profile is a generated chatbot character.
type Profile struct {
	Name             string   `json:"name"`
	Title            string   `json:"title"`
	Persona          string   `json:"persona"`
	Greeting         string   `json:"greeting"`
	Scenario         string   `json:"scenario"`
	ExampleDialogues []string `json:"exampleDialogues"`
	AvatarURL        string   `json:"avatarUrl,omitempty"`
}

// Step is a stage of the creation wizard.
type Step int

const (
	StepDescription Step = iota
	StepDetails
	StepAvatar
	StepPreview
)

var stepNames = [...]string{"description", "details", "avatar", "preview"}

func (s Step) String() string {
	if s < StepDescription || s > StepPreview {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Next returns the following step; the preview is the last one.
func (s Step) Next() Step {
	if s >= StepPreview {
		return StepPreview
	}
	return s + 1
}

// Previous returns the preceding step; the description is the first one.
func (s Step) Previous() Step {
	if s <= StepDescription {
		return StepDescription
	}
	return s - 1
}

// ParseStep resolves a step by name.
func ParseStep(name string) (Step, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return StepDescription, fmt.Errorf("unknown wizard step %q", name)
}
