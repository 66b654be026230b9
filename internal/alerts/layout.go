package alerts

import (
	"fmt"
)

// Path addresses a value inside nested arrays. Negative indices count from
// the end of the array they index.
type Path []int

func (p Path) lookup(root any) (any, error) {
	current := root
	for depth, idx := range p {
		arr, ok := current.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected array at %v[:%d], got %T", ErrStateParseFailure, p, depth, current)
		}
		if idx < 0 {
			idx += len(arr)
		}
		if idx < 0 || idx >= len(arr) {
			return nil, fmt.Errorf("%w: index %v[:%d] out of range (len %d)", ErrStateParseFailure, p, depth+1, len(arr))
		}
		current = arr[idx]
	}
	return current, nil
}

func (p Path) lookupString(root any) (string, error) {
	value, err := p.lookup(root)
	if err != nil {
		return "", err
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string at %v, got %T", ErrStateParseFailure, p, value)
	}
	return str, nil
}

// lookupInt reads a json number, encoding/json decodes every number into a
// float64 so only integral values are accepted.
func (p Path) lookupInt(root any) (int, error) {
	value, err := p.lookup(root)
	if err != nil {
		return 0, err
	}
	num, ok := value.(float64)
	if !ok || num != float64(int(num)) {
		return 0, fmt.Errorf("%w: expected integer at %v, got %v", ErrStateParseFailure, p, value)
	}
	return int(num), nil
}

func (p Path) lookupArray(root any) ([]any, error) {
	value, err := p.lookup(root)
	if err != nil {
		return nil, err
	}
	arr, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected array at %v, got %T", ErrStateParseFailure, p, value)
	}
	return arr, nil
}

// RecordLayout locates the fields of one monitor record, relative to the
// record itself.
type RecordLayout struct {
	ID        Path
	UserID    Path
	Term      Path
	Language  Path
	Region    Path
	MatchType Path
	Delivery  Path
	Frequency Path
	Email     Path
	FeedID    Path
}

// PayloadLayout describes the mutation payloads the server accepts. A
// payload is an outer array holding a monitor array, which holds the query
// array and a list with one delivery record.
type PayloadLayout struct {
	PayloadLen  int
	MonitorSlot int
	// ModifyIDPos is where a modify payload inserts the monitor id.
	ModifyIDPos int

	MonitorLen     int
	QuerySlot      int
	MatchSlot      int
	DeliveriesSlot int

	QueryLen   int
	TermSlot   int
	DomainSlot int
	Domain     string
	// QueryLocaleSlot holds a QueryLocaleLen array with the language and
	// the region.
	QueryLocaleSlot int
	QueryLocaleLen  int
	QueryLangSlot   int
	QueryRegionSlot int
	// QueryTail fills the last slots of the query.
	QueryTail []any

	DeliveryLen   int
	DeliverySlot  int
	EmailSlot     int
	ScheduleSlot  int
	FrequencySlot int
	LocaleSlot    int
	FeedSlot      int
	TokenSlot     int
	// Locale is sent with every delivery record regardless of the
	// monitor's language and region.
	Locale string
	// RSSFrequency is the frequency code feed deliveries carry.
	RSSFrequency  int
	DefaultFeedID string
	// Schedules is the delivery detail that goes with each mail frequency,
	// feeds always send an empty one.
	Schedules map[Frequency][]any

	DeleteLen    int
	DeleteIDSlot int
}

func (p PayloadLayout) schedule(freq Frequency) []any {
	detail, ok := p.Schedules[freq]
	if !ok {
		return []any{}
	}
	out := make([]any, len(detail))
	copy(out, detail)
	return out
}

// Layout is everything known about one observed version of the state
// protocol. Nothing outside of this file should hardcode a state offset.
type Layout struct {
	Name string

	// ScriptMarker identifies the <script> holding the state, the json
	// starts PrefixLen bytes into the script text and stops SuffixLen
	// bytes before its end.
	ScriptMarker string
	PrefixLen    int
	SuffixLen    int

	// MonitorsSlot holds the container of the monitor list, it is null or
	// empty when the account has no monitors.
	MonitorsSlot Path
	MonitorList  Path
	TokenSlot    Path

	Record  RecordLayout
	Payload PayloadLayout

	// FeedURL is formatted with the user id and the feed id.
	FeedURL string
}

// Validate reports whether a decoded state looks like it was produced by
// this layout. A state is accepted only when the token slot holds a
// non-empty string and the monitors slot is absent, null or an array.
func (l *Layout) Validate(state []any) error {
	token, err := l.TokenSlot.lookupString(state)
	if err != nil {
		return fmt.Errorf("layout %s: token: %w", l.Name, err)
	}
	if token == "" {
		return fmt.Errorf("%w: layout %s: empty request token", ErrStateParseFailure, l.Name)
	}

	slot, err := l.MonitorsSlot.lookup(state)
	if err != nil {
		// absent
		return nil
	}
	switch slot.(type) {
	case nil, []any:
		return nil
	default:
		return fmt.Errorf("%w: layout %s: monitors slot holds %T", ErrStateParseFailure, l.Name, slot)
	}
}

var WindowStateV1 = Layout{
	Name:         "window-state-v1",
	ScriptMarker: "window.STATE",
	PrefixLen:    len("//<![CDATA[\nwindow.STATE="),
	SuffixLen:    len("\n//]]>"),

	MonitorsSlot: Path{0},
	MonitorList:  Path{0, 0},
	TokenSlot:    Path{2},

	Record: RecordLayout{
		ID:        Path{0},
		UserID:    Path{-1},
		Term:      Path{1, 2, 0},
		Language:  Path{1, 2, 2, 0},
		Region:    Path{1, 2, 2, 1},
		MatchType: Path{1, 4},
		Delivery:  Path{1, 5, 0, 0},
		Frequency: Path{1, 5, 0, 3},
		Email:     Path{1, 5, 0, 1},
		FeedID:    Path{1, 5, 0, 10},
	},
	Payload: PayloadLayout{
		PayloadLen:  2,
		MonitorSlot: 1,
		ModifyIDPos: 1,

		MonitorLen:     7,
		QuerySlot:      3,
		MatchSlot:      5,
		DeliveriesSlot: 6,

		QueryLen:        9,
		TermSlot:        1,
		DomainSlot:      2,
		Domain:          "com",
		QueryLocaleSlot: 3,
		QueryLocaleLen:  3,
		QueryLangSlot:   1,
		QueryRegionSlot: 2,
		QueryTail:       []any{0, 1},

		DeliveryLen:   15,
		DeliverySlot:  1,
		EmailSlot:     2,
		ScheduleSlot:  3,
		FrequencySlot: 4,
		LocaleSlot:    5,
		FeedSlot:      11,
		TokenSlot:     14,
		Locale:        "en-US",
		RSSFrequency:  1,
		DefaultFeedID: "0",
		Schedules: map[Frequency][]any{
			AsItHappens:     {},
			AtMostOnceADay:  {nil, nil, 3},
			AtMostOnceAWeek: {nil, nil, 0, 3},
		},

		DeleteLen:    2,
		DeleteIDSlot: 1,
	},

	FeedURL: "https://google.com/alerts/feeds/%s/%s",
}

// Layouts is every known layout, tried in order when decoding.
var Layouts = []*Layout{&WindowStateV1}
