package exchange

import "fmt"

// SessionEvent identifies a session level notification published to
// subscribers.
type SessionEvent uint64

const (
	// SessionEventConnectionAdded fires when a connection is added
	SessionEventConnectionAdded SessionEvent = iota

	// SessionEventConnectionRemoved fires when a connection is removed
	SessionEventConnectionRemoved

	// SessionEventModeChanged fires when the session switches mode
	SessionEventModeChanged

	// SessionEventStateChanged fires on start, pause and stop
	SessionEventStateChanged

	// SessionEventStartedDownloading fires when a buying session enters
	// Downloading
	SessionEventStartedDownloading

	// SessionEventDownloadCompleted fires when no pieces are missing
	SessionEventDownloadCompleted

	// SessionEventAllSellersGone fires when a buying session loses its last
	// seller and returns to sending invitations
	SessionEventAllSellersGone
)

// SessionEvents maps session events to human readable names
var SessionEvents = map[SessionEvent]string{
	SessionEventConnectionAdded:    "ConnectionAdded",
	SessionEventConnectionRemoved:  "ConnectionRemoved",
	SessionEventModeChanged:        "ModeChanged",
	SessionEventStateChanged:       "StateChanged",
	SessionEventStartedDownloading: "StartedDownloading",
	SessionEventDownloadCompleted:  "DownloadCompleted",
	SessionEventAllSellersGone:     "AllSellersGone",
}

func (e SessionEvent) String() string {
	if s, ok := SessionEvents[e]; ok {
		return s
	}
	return fmt.Sprintf("SessionEvent(%d)", uint64(e))
}

// SessionNotification is the payload published for each session event.
type SessionNotification[ID comparable] struct {
	Event SessionEvent

	// Connection is set for connection scoped events
	Connection *ID

	// Cause is set for SessionEventConnectionRemoved
	Cause DisconnectCause
}

// SessionSubscriber is notified of session events in the order they happen.
type SessionSubscriber[ID comparable] func(SessionNotification[ID])

// Unsubscribe removes a previously registered subscriber.
type Unsubscribe func()
