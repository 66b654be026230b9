// Package assert panics on wiring mistakes, things a caller can only get
// wrong by misusing the package, never on bad input from the network.
package assert

import (
	"fmt"
	"net/url"
	"reflect"
)

// NotNil panics when value is nil, including a nil pointer, map, slice,
// func or channel stored in an interface.
func NotNil(value any) {
	if isNil(value) {
		panic("expected value to be not nil")
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// NotEmpty panics when the named string option is empty.
func NotEmpty(name, str string) {
	if str == "" {
		panic(fmt.Sprintf("expected %s to be non-empty", name))
	}
}

// AbsoluteURL panics when the named option is not an absolute http(s) url.
func AbsoluteURL(name, raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("expected %s to be a url: %s", name, err))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		panic(fmt.Sprintf("expected %s to be an absolute http url, got %q", name, raw))
	}
}
