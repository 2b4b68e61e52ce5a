package exchange

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Client facing errors from session operations. Operations either fully
// succeed or fail without visible state changes.

var (
	// ErrStateIncompatibleOperation means the operation is illegal in the
	// session's current state
	ErrStateIncompatibleOperation = errors.New("operation is incompatible with current session state")

	// ErrModeIncompatibleOperation means the operation belongs to a
	// different session mode
	ErrModeIncompatibleOperation = errors.New("operation is incompatible with current session mode")

	// ErrNoLongerSendingInvitations means StartDownloading was called after
	// the buying state moved on
	ErrNoLongerSendingInvitations = errors.New("session is no longer sending invitations")
)

// ConnectionDoesNotExistError reports an operation against an unknown
// connection id.
type ConnectionDoesNotExistError[ID comparable] struct {
	ID ID
}

func (e ConnectionDoesNotExistError[ID]) Error() string {
	return fmt.Sprintf("connection %v does not exist", e.ID)
}

// ConnectionAlreadyExistsError reports a duplicate AddConnection.
type ConnectionAlreadyExistsError[ID comparable] struct {
	ID ID
}

func (e ConnectionAlreadyExistsError[ID]) Error() string {
	return fmt.Sprintf("connection %v already exists", e.ID)
}

// PeersNotAllReadyToStartDownloadError reports, per peer, why
// StartDownloading could not proceed. No session state was mutated.
type PeersNotAllReadyToStartDownloadError[ID comparable] struct {
	Causes map[ID]PeerNotReadyCause
}

func (e PeersNotAllReadyToStartDownloadError[ID]) Error() string {
	parts := make([]string, 0, len(e.Causes))
	for id, cause := range e.Causes {
		parts = append(parts, fmt.Sprintf("%v: %s", id, cause))
	}
	sort.Strings(parts)
	return "peers not all ready to start download: " + strings.Join(parts, ", ")
}
