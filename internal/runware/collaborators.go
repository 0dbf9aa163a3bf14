package runware

import (
	"github.com/codefionn/charwizard/internal/logger"
	"github.com/google/uuid"
)

// Notifier receives user-visible failures. Calls are fire-and-forget.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string) {
	f(message)
}

type logNotifier struct {
	log *logger.Logger
}

func (n logNotifier) Notify(message string) {
	n.log.Warn("%s", message)
}

// IDGenerator produces collision-resistant task identifiers.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

// NewID implements IDGenerator.
func (f IDGeneratorFunc) NewID() string {
	return f()
}

// UUIDGenerator issues random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
