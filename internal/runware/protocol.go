package runware

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Task types understood by the endpoint.
const (
	TaskTypeAuthentication = "authentication"
	TaskTypeImageInference = "imageInference"
)

// Fixed image-inference parameters.
const (
	ImageModel     = "runware:100@1"
	ImageWidth     = 512
	ImageHeight    = 512
	ImageResults   = 1
	ImageFormat    = "WEBP"
	ImageSteps     = 4
	ImageCFGScale  = 1
	ImageScheduler = "FlowMatchEulerDiscreteScheduler"
	ImageStrength  = 0.8
)

// AuthRequest is the single element of an outbound authentication frame.
type AuthRequest struct {
	TaskType              string `json:"taskType"`
	APIKey                string `json:"apiKey"`
	ConnectionSessionUUID string `json:"connectionSessionUUID,omitempty"`
}

// ImageInferenceRequest is the single element of an outbound job frame.
type ImageInferenceRequest struct {
	TaskType       string  `json:"taskType"`
	TaskUUID       string  `json:"taskUUID"`
	PositivePrompt string  `json:"positivePrompt"`
	Model          string  `json:"model"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	NumberResults  int     `json:"numberResults"`
	OutputFormat   string  `json:"outputFormat"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"CFGScale"`
	Scheduler      string  `json:"scheduler"`
	Strength       float64 `json:"strength"`
}

func newImageInferenceRequest(taskUUID, prompt string) ImageInferenceRequest {
	return ImageInferenceRequest{
		TaskType:       TaskTypeImageInference,
		TaskUUID:       taskUUID,
		PositivePrompt: prompt,
		Model:          ImageModel,
		Width:          ImageWidth,
		Height:         ImageHeight,
		NumberResults:  ImageResults,
		OutputFormat:   ImageFormat,
		Steps:          ImageSteps,
		CFGScale:       ImageCFGScale,
		Scheduler:      ImageScheduler,
		Strength:       ImageStrength,
	}
}

// Flag decodes an error indicator that may be sent as a boolean or as any
// other JSON value. null, false, "", 0, {} and [] are false; everything else
// is true.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	*f = Flag(truthy(data))
	return nil
}

func truthy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", "0", `""`, "{}", "[]":
		return false
	}
	return true
}

// Item is one entry of an inbound frame's data array.
type Item struct {
	TaskType              string `json:"taskType,omitempty"`
	TaskUUID              string `json:"taskUUID,omitempty"`
	ConnectionSessionUUID string `json:"connectionSessionUUID,omitempty"`
	ImageURL              string `json:"imageURL,omitempty"`
	Error                 Flag   `json:"error,omitempty"`
	ErrorMessage          string `json:"errorMessage,omitempty"`
}

// IsAuthentication reports whether the item acknowledges the handshake.
func (i Item) IsAuthentication() bool {
	return i.TaskType == TaskTypeAuthentication
}

// FrameError is an entry of an inbound frame's errors array.
type FrameError struct {
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
	TaskType string `json:"taskType,omitempty"`
	TaskUUID string `json:"taskUUID,omitempty"`
}

// Frame is a decoded inbound message.
type Frame struct {
	Data         []Item          `json:"data,omitempty"`
	Error        json.RawMessage `json:"error,omitempty"`
	Errors       []FrameError    `json:"errors,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// IsError reports whether the frame carries a frame-level error payload.
func (f *Frame) IsError() bool {
	return truthy(f.Error) || len(f.Errors) > 0
}

// ErrorText returns the most specific message of an error frame.
func (f *Frame) ErrorText() string {
	if f.ErrorMessage != "" {
		return f.ErrorMessage
	}
	for _, e := range f.Errors {
		if e.Message != "" {
			return e.Message
		}
	}
	var s string
	if err := json.Unmarshal(f.Error, &s); err == nil && s != "" {
		return s
	}
	return "An error occurred"
}

// DecodeFrame parses one inbound message.
func DecodeFrame(data []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return &frame, nil
}
