package models

import "fmt"

// Strategy identifies one extraction strategy in the fallback chain.
type Strategy string

const (
	StrategyAPIJSON    Strategy = "api_json"
	StrategyJSObject   Strategy = "js_object"
	StrategyDOMTable   Strategy = "dom_table"
	StrategyDOMBrowser Strategy = "dom_browser"
	StrategyCSV        Strategy = "csv"
	StrategyXML        Strategy = "xml"
)

// DefaultFallbackOrder is the chain tried when a site declares a single
// strategy instead of an explicit ordered list. Driving a real browser
// is never implied; dom_browser runs only when a site lists it.
var DefaultFallbackOrder = []Strategy{
	StrategyAPIJSON,
	StrategyJSObject,
	StrategyDOMTable,
	StrategyCSV,
	StrategyXML,
}

// ParseStrategy validates a strategy tag from configuration.
func ParseStrategy(tag string) (Strategy, error) {
	s := Strategy(tag)
	switch s {
	case StrategyAPIJSON, StrategyJSObject, StrategyDOMTable,
		StrategyDOMBrowser, StrategyCSV, StrategyXML:
		return s, nil
	}
	return "", fmt.Errorf("unknown extraction strategy %q", tag)
}

// FallbackFrom returns the default chain rotated so it starts at the
// declared strategy, followed by the remaining strategies in order. A
// declared strategy outside the default chain leads it.
func FallbackFrom(first Strategy) []Strategy {
	order := make([]Strategy, 0, len(DefaultFallbackOrder)+1)
	order = append(order, first)
	for _, s := range DefaultFallbackOrder {
		if s != first {
			order = append(order, s)
		}
	}
	return order
}

// IsBrowserBased reports whether the strategy drives a real browser
// session (and therefore participates in stealth fingerprinting).
func (s Strategy) IsBrowserBased() bool {
	return s == StrategyDOMBrowser
}
