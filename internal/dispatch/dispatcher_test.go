package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"venuebot/internal/dispatch"
	"venuebot/internal/foursquare"
	"venuebot/internal/session"
)

var testMessages = dispatch.Messages{
	NoSession:  "I don't have a venue list for you yet. Share your location first.",
	OutOfRange: "That venue number isn't in your last search. Pick between 1 and %d.",
}

// sentMessage records one outbound emission, in order, across all three
// message kinds.
type sentMessage struct {
	kind    string // "text", "location", "photo"
	chatID  int64
	text    string
	lat     float64
	lng     float64
	photo   []byte
	caption string
}

type fakeMessenger struct {
	sent    []sentMessage
	textErr error
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string) error {
	m.sent = append(m.sent, sentMessage{kind: "text", chatID: chatID, text: text})
	return m.textErr
}

func (m *fakeMessenger) SendLocation(_ context.Context, chatID int64, lat, lng float64) error {
	m.sent = append(m.sent, sentMessage{kind: "location", chatID: chatID, lat: lat, lng: lng})
	return nil
}

func (m *fakeMessenger) SendPhoto(_ context.Context, chatID int64, photo []byte, caption string) error {
	m.sent = append(m.sent, sentMessage{kind: "photo", chatID: chatID, photo: photo, caption: caption})
	return nil
}

type fakeSearcher struct {
	venues []foursquare.Venue
	err    error
	calls  int
}

func (s *fakeSearcher) Search(_ context.Context, _ foursquare.Point) ([]foursquare.Venue, error) {
	s.calls++
	return s.venues, s.err
}

type fakePhotoFetcher struct {
	photos map[string][]byte
	err    error
}

func (f *fakePhotoFetcher) FetchPhoto(_ context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.photos[url], nil
}

func testVenues() []foursquare.Venue {
	return []foursquare.Venue{
		{
			Name:      "Port Said",
			Latitude:  32.0632,
			Longitude: 34.7719,
			Address:   "Har Sinai St 5",
			Category:  "Restaurant",
			Phone:     "03-6207436",
			Hours:     "Open until 2:00 AM",
			Distance:  120,
			Tips: []foursquare.Tip{
				{Text: "Get the eggplant.", PhotoURL: "https://example.com/eggplant.jpg"},
				{Text: "Cash only."},
			},
		},
		{
			Name:      "Benedict",
			Latitude:  32.0635,
			Longitude: 34.7701,
			Address:   "Corner of Allenby/Rotshild",
			Category:  "Breakfast Spot",
			Phone:     foursquare.DefaultPhone,
			Hours:     "Open 24 Hours",
			Distance:  241,
		},
	}
}

func TestDispatcher_Location(t *testing.T) {
	t.Parallel()

	t.Run("Search success stores session and sends summary", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore(0, nil)
		messenger := &fakeMessenger{}
		searcher := &fakeSearcher{venues: testVenues()}
		d := dispatch.New(nil, searcher, nil, store, messenger, testMessages)

		d.Handle(context.Background(), dispatch.Event{
			ChatID:   42,
			Location: &foursquare.Point{Latitude: 32.06, Longitude: 34.77},
		})

		if len(messenger.sent) != 1 {
			t.Fatalf("got %d messages, want 1", len(messenger.sent))
		}
		want := "/venue1 Port Said, Har Sinai St 5\n/venue2 Benedict, Corner of Allenby/Rotshild"
		if messenger.sent[0].text != want {
			t.Errorf("summary = %q, want %q", messenger.sent[0].text, want)
		}

		stored, err := store.Get(context.Background(), 42)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(stored) != 2 {
			t.Errorf("stored %d venues, want 2", len(stored))
		}
	})

	t.Run("Search failure reports error and keeps prior session", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore(0, nil)
		prior := testVenues()[:1]
		if err := store.Put(context.Background(), 42, prior); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		messenger := &fakeMessenger{}
		searchErr := fmt.Errorf("%w: venue lookup returned status 500", foursquare.ErrRemote)
		d := dispatch.New(nil, &fakeSearcher{err: searchErr}, nil, store, messenger, testMessages)

		d.Handle(context.Background(), dispatch.Event{
			ChatID:   42,
			Location: &foursquare.Point{Latitude: 32.06, Longitude: 34.77},
		})

		if len(messenger.sent) != 1 {
			t.Fatalf("got %d messages, want 1", len(messenger.sent))
		}
		if messenger.sent[0].text != searchErr.Error() {
			t.Errorf("error message = %q, want %q", messenger.sent[0].text, searchErr.Error())
		}

		stored, err := store.Get(context.Background(), 42)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(stored) != 1 || stored[0].Name != "Port Said" {
			t.Errorf("prior session was disturbed: %+v", stored)
		}
	})

	t.Run("Empty result stores empty session", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore(0, nil)
		messenger := &fakeMessenger{}
		d := dispatch.New(nil, &fakeSearcher{}, nil, store, messenger, testMessages)

		d.Handle(context.Background(), dispatch.Event{
			ChatID:   42,
			Location: &foursquare.Point{Latitude: 32.06, Longitude: 34.77},
		})

		if len(messenger.sent) != 1 {
			t.Fatalf("got %d messages, want 1", len(messenger.sent))
		}
		if messenger.sent[0].text != "" {
			t.Errorf("summary = %q, want empty", messenger.sent[0].text)
		}
		if _, err := store.Get(context.Background(), 42); err != nil {
			t.Errorf("Get() error = %v, want stored empty session", err)
		}
	})
}

func TestDispatcher_Venue(t *testing.T) {
	t.Parallel()

	t.Run("Valid index emits pin, detail card, then summary", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore(0, nil)
		if err := store.Put(context.Background(), 42, testVenues()); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		messenger := &fakeMessenger{}
		d := dispatch.New(nil, &fakeSearcher{}, nil, store, messenger, testMessages)

		d.Handle(context.Background(), dispatch.Event{ChatID: 42, Text: "/venue2"})

		if len(messenger.sent) != 3 {
			t.Fatalf("got %d messages, want 3", len(messenger.sent))
		}
		if messenger.sent[0].kind != "location" || messenger.sent[0].lat != 32.0635 || messenger.sent[0].lng != 34.7701 {
			t.Errorf("first emission = %+v, want Benedict's location pin", messenger.sent[0])
		}
		wantCard := "Benedict,\nPhone: no phone\nCategory: Breakfast Spot\nOpen hours: Open 24 Hours\nCorner of Allenby/Rotshild (241m)\nMore: /tips2"
		if messenger.sent[1].text != wantCard {
			t.Errorf("detail card = %q, want %q", messenger.sent[1].text, wantCard)
		}
		wantSummary := "Other venues:\n/venue1 Port Said, Har Sinai St 5\n/venue2 Benedict, Corner of Allenby/Rotshild"
		if messenger.sent[2].text != wantSummary {
			t.Errorf("summary = %q, want %q", messenger.sent[2].text, wantSummary)
		}
	})

	t.Run("No session sends guidance", func(t *testing.T) {
		t.Parallel()

		messenger := &fakeMessenger{}
		d := dispatch.New(nil, &fakeSearcher{}, nil, session.NewMemoryStore(0, nil), messenger, testMessages)

		d.Handle(context.Background(), dispatch.Event{ChatID: 42, Text: "/venue1"})

		if len(messenger.sent) != 1 {
			t.Fatalf("got %d messages, want 1", len(messenger.sent))
		}
		if messenger.sent[0].text != testMessages.NoSession {
			t.Errorf("message = %q, want %q", messenger.sent[0].text, testMessages.NoSession)
		}
	})

	t.Run("Out of range index reports session length", func(t *testing.T) {
		t.Parallel()

		for _, command := range []string{"/venue0", "/venue3", "/venue99"} {
			store := session.NewMemoryStore(0, nil)
			if err := store.Put(context.Background(), 42, testVenues()); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			messenger := &fakeMessenger{}
			d := dispatch.New(nil, &fakeSearcher{}, nil, store, messenger, testMessages)

			d.Handle(context.Background(), dispatch.Event{ChatID: 42, Text: command})

			if len(messenger.sent) != 1 {
				t.Fatalf("%s: got %d messages, want 1", command, len(messenger.sent))
			}
			want := fmt.Sprintf(testMessages.OutOfRange, 2)
			if messenger.sent[0].text != want {
				t.Errorf("%s: message = %q, want %q", command, messenger.sent[0].text, want)
			}
		}
	})

	t.Run("Out of range against empty session", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore(0, nil)
		if err := store.Put(context.Background(), 42, nil); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		messenger := &fakeMessenger{}
		d := dispatch.New(nil, &fakeSearcher{}, nil, store, messenger, testMessages)

		d.Handle(context.Background(), dispatch.Event{ChatID: 42, Text: "/venue1"})

		want := fmt.Sprintf(testMessages.OutOfRange, 0)
		if len(messenger.sent) != 1 || messenger.sent[0].text != want {
			t.Errorf("got %+v, want single %q", messenger.sent, want)
		}
	})
}

func TestDispatcher_Tips(t *testing.T) {
	t.Parallel()

	t.Run("Photo tips become photo messages with captions", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore(0, nil)
		if err := store.Put(context.Background(), 42, testVenues()); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		messenger := &fakeMessenger{}
		photos := &fakePhotoFetcher{photos: map[string][]byte{
			"https://example.com/eggplant.jpg": []byte("jpeg-bytes"),
		}}
		d := dispatch.New(nil, &fakeSearcher{}, photos, store, messenger, testMessages)

		d.Handle(context.Background(), dispatch.Event{ChatID: 42, Text: "/tips1"})

		if len(messenger.sent) != 3 {
			t.Fatalf("got %d messages, want 3", len(messenger.sent))
		}
		if messenger.sent[0].kind != "photo" || messenger.sent[0].caption != "Get the eggplant." {
			t.Errorf("first emission = %+v, want photo with caption", messenger.sent[0])
		}
		if string(messenger.sent[0].photo) != "jpeg-bytes" {
			t.Errorf("photo payload = %q, want fetched bytes", messenger.sent[0].photo)
		}
		if messenger.sent[1].kind != "text" || messenger.sent[1].text != "Cash only." {
			t.Errorf("second emission = %+v, want plain tip text", messenger.sent[1])
		}
		if messenger.sent[2].text != "Other venues:\n/venue1 Port Said, Har Sinai St 5\n/venue2 Benedict, Corner of Allenby/Rotshild" {
			t.Errorf("trailing summary = %q", messenger.sent[2].text)
		}
	})

	t.Run("Photo fetch failure degrades tip to text", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore(0, nil)
		if err := store.Put(context.Background(), 42, testVenues()); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		messenger := &fakeMessenger{}
		photos := &fakePhotoFetcher{err: errors.New("photo host unreachable")}
		d := dispatch.New(nil, &fakeSearcher{}, photos, store, messenger, testMessages)

		d.Handle(context.Background(), dispatch.Event{ChatID: 42, Text: "/tips1"})

		if len(messenger.sent) != 3 {
			t.Fatalf("got %d messages, want 3", len(messenger.sent))
		}
		if messenger.sent[0].kind != "text" || messenger.sent[0].text != "Get the eggplant." {
			t.Errorf("first emission = %+v, want degraded text tip", messenger.sent[0])
		}
	})

	t.Run("Venue without tips still sends summary", func(t *testing.T) {
		t.Parallel()

		store := session.NewMemoryStore(0, nil)
		if err := store.Put(context.Background(), 42, testVenues()); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		messenger := &fakeMessenger{}
		d := dispatch.New(nil, &fakeSearcher{}, nil, store, messenger, testMessages)

		d.Handle(context.Background(), dispatch.Event{ChatID: 42, Text: "/tips2"})

		if len(messenger.sent) != 1 {
			t.Fatalf("got %d messages, want 1", len(messenger.sent))
		}
		if messenger.sent[0].text != "Other venues:\n/venue1 Port Said, Har Sinai St 5\n/venue2 Benedict, Corner of Allenby/Rotshild" {
			t.Errorf("summary = %q", messenger.sent[0].text)
		}
	})

	t.Run("No session sends guidance", func(t *testing.T) {
		t.Parallel()

		messenger := &fakeMessenger{}
		d := dispatch.New(nil, &fakeSearcher{}, nil, session.NewMemoryStore(0, nil), messenger, testMessages)

		d.Handle(context.Background(), dispatch.Event{ChatID: 42, Text: "/tips1"})

		if len(messenger.sent) != 1 || messenger.sent[0].text != testMessages.NoSession {
			t.Errorf("got %+v, want single no-session message", messenger.sent)
		}
	})
}

func TestDispatcher_IgnoresUnknownText(t *testing.T) {
	t.Parallel()

	tests := []string{"hello", "/venues", "/venue", "/tips", "/tipsy", ""}

	for _, text := range tests {
		t.Run(fmt.Sprintf("Text %q", text), func(t *testing.T) {
			t.Parallel()

			messenger := &fakeMessenger{}
			searcher := &fakeSearcher{}
			d := dispatch.New(nil, searcher, nil, session.NewMemoryStore(0, nil), messenger, testMessages)

			d.Handle(context.Background(), dispatch.Event{ChatID: 42, Text: text})

			if len(messenger.sent) != 0 {
				t.Errorf("got %d messages, want none", len(messenger.sent))
			}
			if searcher.calls != 0 {
				t.Errorf("searcher called %d times, want 0", searcher.calls)
			}
		})
	}
}

// TestDispatcher_FullExchange walks one chat through the whole command
// surface: location query, venue detail, tips, then an out-of-range pick.
func TestDispatcher_FullExchange(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0, nil)
	messenger := &fakeMessenger{}
	searcher := &fakeSearcher{venues: testVenues()}
	photos := &fakePhotoFetcher{photos: map[string][]byte{
		"https://example.com/eggplant.jpg": []byte("jpeg-bytes"),
	}}
	d := dispatch.New(nil, searcher, photos, store, messenger, testMessages)

	ctx := context.Background()
	d.Handle(ctx, dispatch.Event{ChatID: 7, Location: &foursquare.Point{Latitude: 32.06, Longitude: 34.77}})
	d.Handle(ctx, dispatch.Event{ChatID: 7, Text: "/venue1"})
	d.Handle(ctx, dispatch.Event{ChatID: 7, Text: "/tips1"})
	d.Handle(ctx, dispatch.Event{ChatID: 7, Text: "/venue5"})

	// 1 summary + (pin, card, summary) + (photo, text, summary) + 1 range error.
	if len(messenger.sent) != 8 {
		t.Fatalf("got %d messages, want 8", len(messenger.sent))
	}

	kinds := make([]string, len(messenger.sent))
	for i, m := range messenger.sent {
		kinds[i] = m.kind
	}
	wantKinds := []string{"text", "location", "text", "text", "photo", "text", "text", "text"}
	for i := range wantKinds {
		if kinds[i] != wantKinds[i] {
			t.Fatalf("emission kinds = %v, want %v", kinds, wantKinds)
		}
	}

	if last := messenger.sent[7].text; last != fmt.Sprintf(testMessages.OutOfRange, 2) {
		t.Errorf("final message = %q, want out-of-range report", last)
	}
	if searcher.calls != 1 {
		t.Errorf("searcher called %d times, want 1", searcher.calls)
	}
}
