package presentation

import (
	"errors"
	"fmt"
	"strings"
)

// Style selects which timing placeholders a group's prompt carries.
type Style string

const (
	StyleMinimal  Style = "minimal"
	StyleNext     Style = "next"
	StyleInterval Style = "interval"
	StyleClock    Style = "clock"
	StyleFull     Style = "full"
)

var ErrUnknownStyle = errors.New("unknown presentation style")

// Placeholder names a timing value a template may reference.
type Placeholder string

const (
	PlaceholderNext    Placeholder = "next"
	PlaceholderCadence Placeholder = "cadence"
	PlaceholderNow     Placeholder = "now"
)

var stylePlaceholders = map[Style][]Placeholder{
	StyleMinimal:  nil,
	StyleNext:     {PlaceholderNext},
	StyleInterval: {PlaceholderCadence},
	StyleClock:    {PlaceholderNow},
	StyleFull:     {PlaceholderNow, PlaceholderNext, PlaceholderCadence},
}

// Styles lists every supported style in a stable order.
func Styles() []Style {
	return []Style{StyleMinimal, StyleNext, StyleInterval, StyleClock, StyleFull}
}

func ParseStyle(s string) (Style, error) {
	style := Style(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := stylePlaceholders[style]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, s)
	}
	return style, nil
}

func (s Style) Valid() bool {
	_, ok := stylePlaceholders[s]
	return ok
}

// Placeholders reports which values are populated when rendering s.
func (s Style) Placeholders() []Placeholder {
	return append([]Placeholder(nil), stylePlaceholders[s]...)
}

func (s Style) populates(p Placeholder) bool {
	for _, candidate := range stylePlaceholders[s] {
		if candidate == p {
			return true
		}
	}
	return false
}
