package consts

import "time"

// Timeouts for various operations
const (
	// Timeout1Second is a 1 second timeout
	Timeout1Second = 1 * time.Second
	// Timeout10Seconds is a 10 second timeout
	Timeout10Seconds = 10 * time.Second
	// Timeout30Seconds is a 30 second timeout
	Timeout30Seconds = 30 * time.Second
	// Timeout60Seconds is a 60 second timeout (1 minute)
	Timeout60Seconds = 60 * time.Second
)

// Runware socket defaults
const (
	// RunwareEndpoint is the image-generation WebSocket endpoint
	RunwareEndpoint = "wss://ws-api.runware.ai/v1"
	// ReconnectDelay is the fixed pause between reconnect attempts
	ReconnectDelay = Timeout1Second
	// WriteWait bounds a single frame write
	WriteWait = Timeout10Seconds
	// MaxFrameSize is the read limit for inbound frames
	MaxFrameSize = 1024 * 1024
)

// Groq and Exa defaults
const (
	GroqBaseURL         = "https://api.groq.com/openai/v1"
	GroqModel           = "llama3-8b-8192"
	GroqTemperature     = 0.7
	GroqMaxTokens       = 2048
	ExaBaseURL          = "https://api.exa.ai"
	PersonaPromptLength = 300
)
