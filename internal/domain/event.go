package domain

// EventType discriminates the live event union on the wire.
type EventType string

const (
	EventTypeConnected EventType = "connected"
	EventTypeStats     EventType = "stats"
	EventTypeComment   EventType = "comment"
	EventTypeGift      EventType = "gift"
	EventTypeError     EventType = "error"
)

// Event is one live event as delivered to clients. Data holds exactly one of
// the *Data payload types below, matching Type. Events are immutable once
// constructed.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// User identifies the author of a comment or gift.
type User struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// ConnectedData acknowledges a successfully opened stream. Always the first
// event on a stream.
type ConnectedData struct {
	Message    string `json:"message"`
	UserAvatar string `json:"userAvatar"`
}

// StatsData is a periodic counter snapshot. Shares counts gifts and is
// accumulated client-side; the server always reports 0.
type StatsData struct {
	Viewers int `json:"viewers"`
	Likes   int `json:"likes"`
	Shares  int `json:"shares"`
}

type CommentData struct {
	ID      string `json:"id"`
	User    User   `json:"user"`
	Comment string `json:"comment"`
}

// GiftData is part of the wire taxonomy but is never produced from the live
// DOM: there is no confirmed gift hook on the page. Both transports carry it
// end to end should an extractor ever emit one.
type GiftData struct {
	ID       string `json:"id"`
	User     User   `json:"user"`
	GiftName string `json:"giftName"`
	Amount   int    `json:"amount"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// ConnectedEvent builds the acknowledgment event for a freshly opened stream.
func ConnectedEvent(target, avatarURL string) Event {
	return Event{
		Type: EventTypeConnected,
		Data: ConnectedData{
			Message:    "Connected to @" + target,
			UserAvatar: avatarURL,
		},
	}
}

// ErrorEvent wraps a client-facing message as an in-band error event.
func ErrorEvent(message string) Event {
	return Event{Type: EventTypeError, Data: ErrorData{Message: message}}
}
