package alerts

import (
	"fmt"
	"strings"
)

// the numeric values of these enums are the codes used by the service.

type MatchType int

const (
	MatchAll  MatchType = 2
	MatchBest MatchType = 3
)

var matchTypeNames = map[MatchType]string{
	MatchAll:  "ALL",
	MatchBest: "BEST",
}

type Delivery int

const (
	DeliveryMail Delivery = 1
	DeliveryRSS  Delivery = 2
)

var deliveryNames = map[Delivery]string{
	DeliveryMail: "MAIL",
	DeliveryRSS:  "RSS",
}

type Frequency int

const (
	AsItHappens     Frequency = 1
	AtMostOnceADay  Frequency = 2
	AtMostOnceAWeek Frequency = 3
)

var frequencyNames = map[Frequency]string{
	AsItHappens:     "AS_IT_HAPPENS",
	AtMostOnceADay:  "AT_MOST_ONCE_A_DAY",
	AtMostOnceAWeek: "AT_MOST_ONCE_A_WEEK",
}

func (m MatchType) String() string { return matchTypeNames[m] }
func (d Delivery) String() string  { return deliveryNames[d] }
func (f Frequency) String() string { return frequencyNames[f] }

func (m MatchType) valid() bool {
	_, ok := matchTypeNames[m]
	return ok
}

func (d Delivery) valid() bool {
	_, ok := deliveryNames[d]
	return ok
}

func (f Frequency) valid() bool {
	_, ok := frequencyNames[f]
	return ok
}

func parseEnum[T comparable](kind, value string, names map[T]string) (T, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), "-", "_"))
	for code, name := range names {
		if name == normalized {
			return code, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: unknown %s %q", ErrInvalidConfig, kind, value)
}

func ParseMatchType(value string) (MatchType, error) {
	return parseEnum("match type", value, matchTypeNames)
}

func ParseDelivery(value string) (Delivery, error) {
	return parseEnum("delivery", value, deliveryNames)
}

func ParseFrequency(value string) (Frequency, error) {
	return parseEnum("alert frequency", value, frequencyNames)
}

// Monitor is one alert subscription as it appears in the state.
type Monitor struct {
	ID        string
	UserID    string
	Term      string
	Language  string
	Region    string
	MatchType MatchType
	Delivery  Delivery
	// Frequency and EmailAddress are only set for mail monitors.
	Frequency    Frequency
	EmailAddress string
	// RSSLink is only set for feed monitors.
	RSSLink string
}

// recordReader reads fields out of a monitor record, after the first
// failure every read is a no-op and err holds the failure.
type recordReader struct {
	record any
	err    error
}

func (r *recordReader) str(p Path) string {
	if r.err != nil {
		return ""
	}
	value, err := p.lookupString(r.record)
	r.err = err
	return value
}

func (r *recordReader) num(p Path) int {
	if r.err != nil {
		return 0
	}
	value, err := p.lookupInt(r.record)
	r.err = err
	return value
}

func projectMonitor(layout *Layout, record any) (Monitor, error) {
	fields := layout.Record
	r := &recordReader{record: record}

	m := Monitor{
		ID:        r.str(fields.ID),
		UserID:    r.str(fields.UserID),
		Term:      r.str(fields.Term),
		Language:  r.str(fields.Language),
		Region:    r.str(fields.Region),
		MatchType: MatchType(r.num(fields.MatchType)),
		Delivery:  Delivery(r.num(fields.Delivery)),
	}
	if r.err != nil {
		return Monitor{}, r.err
	}
	if !m.MatchType.valid() {
		return Monitor{}, fmt.Errorf("%w: unknown match type code %d", ErrStateParseFailure, m.MatchType)
	}

	switch m.Delivery {
	case DeliveryMail:
		m.Frequency = Frequency(r.num(fields.Frequency))
		m.EmailAddress = r.str(fields.Email)
		if r.err == nil && !m.Frequency.valid() {
			return Monitor{}, fmt.Errorf("%w: unknown alert frequency code %d", ErrStateParseFailure, m.Frequency)
		}
	case DeliveryRSS:
		feedId := r.str(fields.FeedID)
		m.RSSLink = fmt.Sprintf(layout.FeedURL, m.UserID, feedId)
	default:
		return Monitor{}, fmt.Errorf("%w: unknown delivery code %d", ErrStateParseFailure, m.Delivery)
	}
	if r.err != nil {
		return Monitor{}, r.err
	}

	return m, nil
}

// FilterByTerm keeps the monitors whose term is exactly term, in order.
func FilterByTerm(monitors []Monitor, term string) []Monitor {
	var out []Monitor
	for _, m := range monitors {
		if m.Term == term {
			out = append(out, m)
		}
	}
	return out
}
