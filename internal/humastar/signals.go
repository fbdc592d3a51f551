package humastar

import (
	"encoding/json"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// Signals is the flat signal object Datastar posts with every action.
type Signals map[string]any

// ParseSignals decodes a request body.
func ParseSignals(body []byte) (Signals, error) {
	var s Signals
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// String returns a string signal, or "".
func (s Signals) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Int returns a numeric signal. Number inputs may post their value as
// text, so numeric strings count.
func (s Signals) Int(key string) (int, bool) {
	switch v := s[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// Has reports whether the signal was sent.
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// SignalsInput is embedded by inputs of Datastar actions.
type SignalsInput struct {
	RawBody []byte
}

// MustParse parses the signals or fails the request with 400.
func (i *SignalsInput) MustParse() (Signals, error) {
	s, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return s, nil
}
