// Package dispatch implements the command dispatcher: it interprets
// inbound chat events (shared location, /venueN, /tipsN) against the
// session store and the venue lookup client, and emits outbound messages
// through a Messenger. The dispatcher itself is stateless; all per-chat
// state lives in the session store.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"venuebot/internal/format"
	"venuebot/internal/foursquare"
	"venuebot/internal/session"
)

var (
	venueRe = regexp.MustCompile(`/venue(\d+)`)
	tipsRe  = regexp.MustCompile(`/tips(\d+)`)
)

// Event is one inbound chat interaction. Exactly one of Location or Text
// is meaningful; events matching neither a location nor a known command
// pattern are ignored.
type Event struct {
	ChatID   int64             `json:"chat_id"`
	Location *foursquare.Point `json:"location,omitempty"`
	Text     string            `json:"text,omitempty"`
}

// Sink consumes inbound events. The dispatcher is the direct
// implementation; the ingest mode wires a SinkFunc that enqueues instead.
type Sink interface {
	Handle(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event)

// Handle calls f(ctx, ev).
func (f SinkFunc) Handle(ctx context.Context, ev Event) { f(ctx, ev) }

// Messenger is the outbound side of the chat transport. Implementations
// must support the three message kinds the dispatcher emits.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendLocation(ctx context.Context, chatID int64, lat, lng float64) error
	SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error
}

// Messages holds the user-visible texts for recoverable command errors.
type Messages struct {
	// NoSession guides a user who issued /venueN or /tipsN before any
	// location query.
	NoSession string
	// OutOfRange is a fmt string taking the current session length.
	OutOfRange string
}

// Dispatcher routes inbound events. All errors are recovered here: a
// failed lookup or an invalid index becomes a chat message, never a
// terminated dispatch loop.
type Dispatcher struct {
	logger    *slog.Logger
	searcher  foursquare.Searcher
	photos    foursquare.PhotoFetcher
	store     session.Store
	messenger Messenger
	messages  Messages
}

// New creates a dispatcher. photos may be nil, in which case tips with
// photo references degrade to text-only messages.
func New(
	logger *slog.Logger,
	searcher foursquare.Searcher,
	photos foursquare.PhotoFetcher,
	store session.Store,
	messenger Messenger,
	messages Messages,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger:    logger.With("component", "dispatcher"),
		searcher:  searcher,
		photos:    photos,
		store:     store,
		messenger: messenger,
		messages:  messages,
	}
}

// Handle processes one inbound event to completion, including every
// outbound message it produces, before returning. Message emission order
// within one event is fixed; ordering across events is the transport's
// concern.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) {
	switch {
	case ev.Location != nil:
		d.handleLocation(ctx, ev.ChatID, *ev.Location)
	case ev.Text != "":
		if m := venueRe.FindStringSubmatch(ev.Text); m != nil {
			d.handleVenue(ctx, ev.ChatID, mustAtoi(m[1]))
		} else if m := tipsRe.FindStringSubmatch(ev.Text); m != nil {
			d.handleTips(ctx, ev.ChatID, mustAtoi(m[1]))
		}
		// Any other text is a no-op, not a fault.
	}
}

func (d *Dispatcher) handleLocation(ctx context.Context, chatID int64, p foursquare.Point) {
	log := d.logger.With("handler", "location", "chat_id", chatID)
	log.InfoContext(ctx, "Handling location event", "lat", p.Latitude, "lng", p.Longitude)

	venues, err := d.searcher.Search(ctx, p)
	if err != nil {
		log.WarnContext(ctx, "Venue search failed", "error", err)
		d.sendText(ctx, chatID, err.Error())
		return
	}

	if err := d.store.Put(ctx, chatID, venues); err != nil {
		log.ErrorContext(ctx, "Failed to store session", "error", err)
		d.sendText(ctx, chatID, err.Error())
		return
	}

	d.sendText(ctx, chatID, format.SummaryList(venues, ""))
}

func (d *Dispatcher) handleVenue(ctx context.Context, chatID int64, index int) {
	log := d.logger.With("handler", "venue", "chat_id", chatID, "index", index)
	log.InfoContext(ctx, "Handling /venue command")

	venues, ok := d.loadSession(ctx, log, chatID, index)
	if !ok {
		return
	}

	v := venues[index-1]
	if err := d.messenger.SendLocation(ctx, chatID, v.Latitude, v.Longitude); err != nil {
		log.ErrorContext(ctx, "Failed to send venue location", "error", err)
	}
	d.sendText(ctx, chatID, format.DetailCard(v, index))
	d.sendText(ctx, chatID, format.SummaryList(venues, format.OtherVenuesHeader))
}

func (d *Dispatcher) handleTips(ctx context.Context, chatID int64, index int) {
	log := d.logger.With("handler", "tips", "chat_id", chatID, "index", index)
	log.InfoContext(ctx, "Handling /tips command")

	venues, ok := d.loadSession(ctx, log, chatID, index)
	if !ok {
		return
	}

	for _, tip := range venues[index-1].Tips {
		msg := format.Tip(tip)
		if msg.PhotoURL != "" && d.photos != nil {
			photo, err := d.photos.FetchPhoto(ctx, msg.PhotoURL)
			if err == nil {
				if err := d.messenger.SendPhoto(ctx, chatID, photo, msg.Text); err != nil {
					log.ErrorContext(ctx, "Failed to send tip photo", "error", err)
				}
				continue
			}
			// Photo fetch failure degrades the tip to text only.
			log.WarnContext(ctx, "Tip photo fetch failed, sending text only", "url", msg.PhotoURL, "error", err)
		}
		d.sendText(ctx, chatID, msg.Text)
	}

	d.sendText(ctx, chatID, format.SummaryList(venues, format.OtherVenuesHeader))
}

// loadSession fetches the chat's session and validates the 1-based index
// against it, reporting no-session and out-of-range conditions to the user.
func (d *Dispatcher) loadSession(ctx context.Context, log *slog.Logger, chatID int64, index int) ([]foursquare.Venue, bool) {
	venues, err := d.store.Get(ctx, chatID)
	if errors.Is(err, session.ErrNoSession) {
		d.sendText(ctx, chatID, d.messages.NoSession)
		return nil, false
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to read session", "error", err)
		d.sendText(ctx, chatID, err.Error())
		return nil, false
	}

	if index < 1 || index > len(venues) {
		log.InfoContext(ctx, "Venue index out of range", "session_len", len(venues))
		d.sendText(ctx, chatID, fmt.Sprintf(d.messages.OutOfRange, len(venues)))
		return nil, false
	}
	return venues, true
}

func (d *Dispatcher) sendText(ctx context.Context, chatID int64, text string) {
	if err := d.messenger.SendText(ctx, chatID, text); err != nil {
		d.logger.ErrorContext(ctx, "Failed to send message", "chat_id", chatID, "error", err)
	}
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s) // the regex guarantees digits
	return n
}
