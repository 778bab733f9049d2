package session

import messagebus "github.com/vardius/message-bus"

// Topics published on the session event bus. Subscribers receive the
// arguments listed next to each topic.
const (
	// TopicImageLoaded: (sessionID string, name string, result fit.Result)
	TopicImageLoaded = "image.loaded"
	// TopicMemeGenerated: (sessionID string, captions Captions)
	TopicMemeGenerated = "meme.generated"
	// TopicMemeReset: (sessionID string)
	TopicMemeReset = "meme.reset"
	// TopicVolumeChanged: (sessionID string, volume speech.Volume, icon speech.Icon)
	TopicVolumeChanged = "volume.changed"
)

// NewBus creates the event bus shared by sessions
func NewBus(queueSize int) messagebus.MessageBus {
	if queueSize <= 0 {
		queueSize = 64
	}
	return messagebus.New(queueSize)
}
