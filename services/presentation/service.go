package presentation

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/zap"
)

const (
	templateExtension = ".tmpl"
	clockLayout       = "15:04"
)

var defaultTemplates = map[Style]string{
	StyleMinimal:  "🔐 A new 2FA code is available. Tap the button below to get it.",
	StyleNext:     "🔐 A new 2FA code is available.\nNext code at {{.Next}}.",
	StyleInterval: "🔐 A new 2FA code is available.\nCodes are refreshed every {{.Cadence}}.",
	StyleClock:    "🔐 A new 2FA code is available.\nCurrent time: {{.Now}}.",
	StyleFull:     "🔐 A new 2FA code is available.\nCurrent time: {{.Now}}\nNext code at {{.Next}} (every {{.Cadence}}).",
}

// Prompt is the data a style template is executed against. Fields the style
// does not populate are left empty.
type Prompt struct {
	Next     string
	Cadence  string
	Now      string
	Timezone string
}

// Timing is the raw input of one firing.
type Timing struct {
	Now      time.Time
	Cadence  time.Duration
	Location *time.Location
}

type Service struct {
	dir       string
	templates map[Style]*template.Template
	logger    *logging.Service
}

// New builds the renderer from the built-in wording; when dir is set, any
// "<style>.tmpl" file found there replaces the built-in template.
func New(dir string, logger *logging.Service) (*Service, error) {
	s := &Service{
		dir:       dir,
		templates: make(map[Style]*template.Template, len(defaultTemplates)),
		logger:    logger,
	}

	for style, text := range defaultTemplates {
		tmpl, err := template.New(string(style)).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse built-in template %s: %w", style, err)
		}
		s.templates[style] = tmpl
	}

	if dir != "" {
		if err := s.loadOverrides(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Service) loadOverrides() error {
	pattern := filepath.Join(s.dir, "*"+templateExtension)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("invalid templates pattern %q: %w", pattern, err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), templateExtension)
		style, err := ParseStyle(name)
		if err != nil {
			s.logger.Warn("ignoring template for unknown style", zap.String("file", file))
			continue
		}

		tmpl, err := template.New(filepath.Base(file)).ParseFiles(file)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		s.templates[style] = tmpl
		s.logger.Info("loaded prompt template override",
			zap.String("style", string(style)),
			zap.String("file", file))
	}

	return nil
}

// Data computes the placeholder values style is allowed to populate.
func (s *Service) Data(style Style, timing Timing) Prompt {
	loc := timing.Location
	if loc == nil {
		loc = time.UTC
	}

	now := timing.Now.In(loc)
	prompt := Prompt{Timezone: loc.String()}

	if style.populates(PlaceholderNow) {
		prompt.Now = now.Format(clockLayout)
	}
	if style.populates(PlaceholderNext) {
		prompt.Next = now.Add(timing.Cadence).Format(clockLayout)
	}
	if style.populates(PlaceholderCadence) {
		prompt.Cadence = HumanizeCadence(timing.Cadence)
	}

	return prompt
}

// Render produces the prompt text for one firing.
func (s *Service) Render(style Style, timing Timing) (string, error) {
	tmpl, ok := s.templates[style]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, style)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, s.Data(style, timing)); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", style, err)
	}

	return strings.TrimSpace(buf.String()), nil
}
