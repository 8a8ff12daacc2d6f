// Package session provides the per-chat venue session store. A session is
// the venue list captured by the chat's most recent successful location
// query; it is replaced wholesale on every new query and read by the
// /venueN and /tipsN command handlers.
package session

import (
	"context"
	"errors"

	"venuebot/internal/foursquare"
)

// ErrNoSession is returned by Get when the chat has never completed a
// location query. Command handlers surface it to the user as a guidance
// message, never as a fault.
var ErrNoSession = errors.New("no session for chat")

// Store is the per-chat session contract. Put replaces the stored list for
// the chat (no merge); Get returns exactly the list last put, in order.
// Operations for different chats are independent; concurrent writes for the
// same chat resolve last-write-wins.
type Store interface {
	Put(ctx context.Context, chatID int64, venues []foursquare.Venue) error
	Get(ctx context.Context, chatID int64) ([]foursquare.Venue, error)
	Close() error
}
