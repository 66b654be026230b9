package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Action int

const (
	ActionCreate Action = iota + 1
	ActionModify
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionModify:
		return "modify"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

const (
	defaultLanguage = "en"
	defaultRegion   = "US"
)

// Options configures a monitor on create or modify. Zero values mean unset.
type Options struct {
	// Delivery is required.
	Delivery  Delivery
	Region    string
	Language  string
	MatchType MatchType
	Frequency Frequency
	// Exact wraps the term in quotes, the quoted term is a different
	// monitor from the bare one.
	Exact bool
	// RSSID carries the feed of a feed monitor through a modify, only the
	// part after the last "/" is sent so a full rss link works too.
	RSSID string
	// EmailAddress receives mail monitors.
	EmailAddress string

	Action    Action
	MonitorID string
}

// ExactTerm is the term a monitor created with Exact ends up with.
func ExactTerm(term string) string {
	return `"` + term + `"`
}

func (o Options) withDefaults() Options {
	if o.Region == "" {
		o.Region = defaultRegion
	}
	if o.Language == "" {
		o.Language = defaultLanguage
	}
	if o.MatchType == 0 {
		o.MatchType = MatchBest
	}
	if o.Frequency == 0 {
		o.Frequency = AtMostOnceADay
	}
	return o
}

func (o Options) validate() error {
	if o.Delivery == 0 {
		return fmt.Errorf("%w: delivery is required", ErrInvalidConfig)
	}
	if !o.Delivery.valid() {
		return fmt.Errorf("%w: unknown delivery %d", ErrInvalidConfig, o.Delivery)
	}
	if !o.MatchType.valid() {
		return fmt.Errorf("%w: unknown match type %d", ErrInvalidConfig, o.MatchType)
	}
	if !o.Frequency.valid() {
		return fmt.Errorf("%w: unknown alert frequency %d", ErrInvalidConfig, o.Frequency)
	}
	if o.Delivery == DeliveryMail && o.EmailAddress == "" {
		return fmt.Errorf("%w: mail delivery needs an email address", ErrInvalidConfig)
	}
	if o.Action == ActionModify && o.MonitorID == "" {
		return fmt.Errorf("%w: modify needs a monitor id", ErrInvalidConfig)
	}
	return nil
}

// BuildPayload builds the create or modify payload for term.
func BuildPayload(state AppState, term string, opts Options) ([]any, error) {
	if !state.Valid() {
		return nil, ErrInvalidState
	}
	opts = opts.withDefaults()
	err := opts.validate()
	if err != nil {
		return nil, err
	}
	layout := state.layout.Payload

	if opts.Exact {
		term = ExactTerm(term)
	}

	record := make([]any, layout.DeliveryLen)
	record[layout.DeliverySlot] = int(opts.Delivery)
	record[layout.LocaleSlot] = layout.Locale
	record[layout.FeedSlot] = layout.DefaultFeedID
	record[layout.TokenSlot] = state.Token()
	switch opts.Delivery {
	case DeliveryRSS:
		record[layout.EmailSlot] = ""
		record[layout.ScheduleSlot] = []any{}
		record[layout.FrequencySlot] = layout.RSSFrequency
	case DeliveryMail:
		record[layout.EmailSlot] = opts.EmailAddress
		record[layout.ScheduleSlot] = layout.schedule(opts.Frequency)
		record[layout.FrequencySlot] = int(opts.Frequency)
	}

	locale := make([]any, layout.QueryLocaleLen)
	locale[layout.QueryLangSlot] = opts.Language
	locale[layout.QueryRegionSlot] = opts.Region

	query := make([]any, layout.QueryLen)
	query[layout.TermSlot] = term
	query[layout.DomainSlot] = layout.Domain
	query[layout.QueryLocaleSlot] = locale
	copy(query[layout.QueryLen-len(layout.QueryTail):], layout.QueryTail)

	monitor := make([]any, layout.MonitorLen)
	monitor[layout.QuerySlot] = query
	monitor[layout.MatchSlot] = int(opts.MatchType)
	monitor[layout.DeliveriesSlot] = []any{record}

	payload := make([]any, layout.PayloadLen)
	payload[layout.MonitorSlot] = monitor

	if opts.Action == ActionModify {
		pos := layout.ModifyIDPos
		payload = append(payload[:pos], append([]any{opts.MonitorID}, payload[pos:]...)...)
		if opts.RSSID != "" {
			segments := strings.Split(opts.RSSID, "/")
			record[layout.FeedSlot] = segments[len(segments)-1]
		}
	}

	return payload, nil
}

// DeletePayload builds the payload that deletes the monitor with id.
func DeletePayload(state AppState, id string) ([]any, error) {
	if !state.Valid() {
		return nil, ErrInvalidState
	}
	layout := state.layout.Payload
	payload := make([]any, layout.DeleteLen)
	payload[layout.DeleteIDSlot] = id
	return payload, nil
}

// EncodePayload serializes a payload as compact json.
func EncodePayload(payload []any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(payload)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
