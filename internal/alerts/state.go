package alerts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"galerts/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// AppState is the state blob embedded in the alerts page. Outside of this
// package it is only a holder of monitors and the request token.
type AppState struct {
	layout *Layout
	raw    []any
}

// NewAppState checks raw against layout before wrapping it.
func NewAppState(layout *Layout, raw []any) (AppState, error) {
	err := layout.Validate(raw)
	if err != nil {
		return AppState{}, err
	}
	return AppState{layout: layout, raw: raw}, nil
}

// Valid is false for the zero AppState.
func (s AppState) Valid() bool {
	return s.layout != nil
}

func (s AppState) Layout() *Layout {
	return s.layout
}

// Token is the per session request token ("requestX") every mutating call
// must echo back.
func (s AppState) Token() string {
	if s.layout == nil {
		return ""
	}
	token, _ := s.layout.TokenSlot.lookupString(s.raw)
	return token
}

// Monitors projects every monitor record of the state. A state with no
// monitors yields an empty result, any record that does not match the
// layout fails the whole projection.
func (s AppState) Monitors() ([]Monitor, error) {
	if s.layout == nil {
		return nil, ErrInvalidState
	}

	slot, err := s.layout.MonitorsSlot.lookup(s.raw)
	if err != nil {
		return nil, nil
	}
	if container, ok := slot.([]any); slot == nil || (ok && len(container) == 0) {
		return nil, nil
	}

	records, err := s.layout.MonitorList.lookupArray(s.raw)
	if err != nil {
		return nil, err
	}
	monitors := make([]Monitor, 0, len(records))
	for i, record := range records {
		m, err := projectMonitor(s.layout, record)
		if err != nil {
			return nil, fmt.Errorf("monitor %d: %w", i, err)
		}
		monitors = append(monitors, m)
	}
	return monitors, nil
}

// DecodeState extracts the state blob from the html of the alerts page,
// trying each layout in order. It returns false when the page holds an empty
// state, which is not an error.
func DecodeState(layouts []*Layout, body []byte) (AppState, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return AppState{}, false, fmt.Errorf("%w: parse html: %w", ErrStateParseFailure, err)
	}

	var errlist []error
	for _, layout := range layouts {
		state, ok, err := decodeLayout(layout, doc)
		if err != nil {
			errlist = append(errlist, err)
			continue
		}
		return state, ok, nil
	}
	if len(errlist) == 0 {
		return AppState{}, false, fmt.Errorf("%w: no known layout", ErrStateParseFailure)
	}
	return AppState{}, false, errors.Join(errlist...)
}

func decodeLayout(layout *Layout, doc *goquery.Document) (AppState, bool, error) {
	text, found := htmlutil.ScriptContaining(doc, layout.ScriptMarker)
	if !found {
		return AppState{}, false, fmt.Errorf("%w: layout %s: no script containing %q", ErrStateParseFailure, layout.Name, layout.ScriptMarker)
	}
	if len(text) < layout.PrefixLen+layout.SuffixLen {
		return AppState{}, false, fmt.Errorf("%w: layout %s: state script too short", ErrStateParseFailure, layout.Name)
	}
	blob := text[layout.PrefixLen : len(text)-layout.SuffixLen]

	var decoded any
	err := json.Unmarshal([]byte(blob), &decoded)
	if err != nil {
		return AppState{}, false, fmt.Errorf("%w: layout %s: %w", ErrStateParseFailure, layout.Name, err)
	}

	switch value := decoded.(type) {
	case string:
		if value == "" {
			return AppState{}, false, nil
		}
	case []any:
		state, err := NewAppState(layout, value)
		if err != nil {
			return AppState{}, false, err
		}
		return state, true, nil
	}
	return AppState{}, false, fmt.Errorf("%w: layout %s: state is %T, not an array", ErrStateParseFailure, layout.Name, decoded)
}
