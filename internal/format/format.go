// Package format renders venue and tip records into chat-displayable text.
// Every function is pure: no I/O, no state, deterministic for the same
// input. User-facing venue indices are 1-based; callers pass the 0-based
// position in the session list where noted.
package format

import (
	"fmt"
	"strings"

	"venuebot/internal/foursquare"
)

// OtherVenuesHeader prefixes the summary reminder sent after a detail card
// or a tip sequence.
const OtherVenuesHeader = "Other venues:"

// SummaryLine renders one venue as a selectable list entry. index is the
// venue's 0-based position in the session list; the displayed command index
// is 1-based.
func SummaryLine(v foursquare.Venue, index int) string {
	return fmt.Sprintf("/venue%d %s, %s", index+1, v.Name, v.Address)
}

// SummaryList renders the whole session as newline-joined summary lines,
// in list order. header may be empty.
func SummaryList(venues []foursquare.Venue, header string) string {
	lines := make([]string, 0, len(venues)+1)
	if header != "" {
		lines = append(lines, header)
	}
	for i, v := range venues {
		lines = append(lines, SummaryLine(v, i))
	}
	return strings.Join(lines, "\n")
}

// DetailCard renders the multi-line detail block for one venue. index is
// the 1-based position the user selected; the trailer points at the
// matching /tips command.
func DetailCard(v foursquare.Venue, index int) string {
	return fmt.Sprintf(`%s,
Phone: %s
Category: %s
Open hours: %s
%s (%dm)
More: /tips%d`, v.Name, v.Phone, v.Category, v.Hours, v.Address, v.Distance, index)
}

// Message is one rendered tip: text plus its optional photo reference.
// The dispatcher sends a photo with caption when PhotoURL is set, a plain
// text message otherwise.
type Message struct {
	Text     string
	PhotoURL string
}

// Tip passes a tip record through as a renderable message.
func Tip(t foursquare.Tip) Message {
	return Message{Text: t.Text, PhotoURL: t.PhotoURL}
}
