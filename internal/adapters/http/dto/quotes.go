package dto

import (
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
)

// MaxQuoteLength bounds the text of a submitted quote.
const MaxQuoteLength = 2000

// QuoteResponse is the wire form of a quote.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	ID       string `json:"id,omitempty"`
}

// FromQuote converts a domain quote.
func FromQuote(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category, ID: q.ID}
}

// FromQuotes converts a slice of domain quotes. The result is never nil.
func FromQuotes(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, FromQuote(q))
	}

	return out
}

// AddQuoteRequest is the body of POST /quotes. Blank fields are accepted and
// produce an unchanged store.
type AddQuoteRequest struct {
	Text     string `json:"text" validate:"max=2000"`
	Category string `json:"category" validate:"max=100"`
}

// FilterRequest is the body of PUT /filter.
type FilterRequest struct {
	Category string `json:"category" validate:"notblank,max=100"`
}

// SyncQuery holds the query parameters of POST /sync.
type SyncQuery struct {
	Policy string `form:"policy" validate:"omitempty,mergepolicy"`
}

// ResolveRequest is the body of POST /sync/conflicts/:index/resolve.
type ResolveRequest struct {
	Resolution string `json:"resolution" validate:"required,resolution"`
}

// IndexParam binds the conflict index path segment.
type IndexParam struct {
	Index int `uri:"index" validate:"gte=0"`
}

// IntentRequest is the body of POST /intents/:intent. Payload carries the
// document of an import intent.
type IntentRequest struct {
	Category   string         `json:"category" validate:"max=100"`
	Text       string         `json:"text" validate:"max=2000"`
	Policy     string         `json:"policy" validate:"omitempty,mergepolicy"`
	Index      int            `json:"index" validate:"gte=0"`
	Resolution string         `json:"resolution" validate:"omitempty,resolution"`
	Payload    RawJSONPayload `json:"payload,omitempty"`
}

// RawJSONPayload keeps an embedded JSON document verbatim.
type RawJSONPayload []byte

// UnmarshalJSON implements json.Unmarshaler.
func (p *RawJSONPayload) UnmarshalJSON(data []byte) error {
	*p = append((*p)[:0], data...)
	return nil
}

// ShowResponse answers show-next and filter changes. "Nothing to show" is a
// normal answer with Available false.
type ShowResponse struct {
	Available bool           `json:"available"`
	Quote     *QuoteResponse `json:"quote,omitempty"`
	Message   string         `json:"message,omitempty"`
	Filter    string         `json:"filter"`
}

// ConflictResponse describes one retained sync conflict.
type ConflictResponse struct {
	Index      int           `json:"index"`
	LocalIndex int           `json:"localIndex"`
	Local      QuoteResponse `json:"local"`
	Server     QuoteResponse `json:"server"`
}

// FromConflicts numbers conflicts by their position in the list, which is
// the index the resolve route expects.
func FromConflicts(conflicts []domain.Conflict) []ConflictResponse {
	out := make([]ConflictResponse, 0, len(conflicts))
	for i, c := range conflicts {
		out = append(out, ConflictResponse{
			Index:      i,
			LocalIndex: c.LocalIndex,
			Local:      FromQuote(c.Local),
			Server:     FromQuote(c.Server),
		})
	}

	return out
}
