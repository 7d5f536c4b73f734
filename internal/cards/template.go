package cards

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCardID names the template used when an intake does not pick one.
const DefaultCardID = "default"

// DateLayout is the wire format of DateInput values.
const DateLayout = "2006-01-02"

// ErrTemplateNotFound is returned for unknown card ids when no default exists.
var ErrTemplateNotFound = errors.New("card template not found")

// InputKind is the control used to capture or show a template field.
type InputKind string

const (
	InputTextBlock InputKind = "TextBlock"
	InputText      InputKind = "TextInput"
	InputChoiceSet InputKind = "ChoiceSet"
	InputDate      InputKind = "DateInput"
)

// UnmarshalYAML rejects kinds the renderer does not know.
func (k *InputKind) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch kind := InputKind(raw); kind {
	case InputTextBlock, InputText, InputChoiceSet, InputDate:
		*k = kind
		return nil
	}
	return fmt.Errorf("line %d: unknown input kind %q", value.Line, raw)
}

// FieldSpec describes one additional field on an intake card.
type FieldSpec struct {
	ID       string    `yaml:"id"`
	Label    string    `yaml:"label"`
	Kind     InputKind `yaml:"kind"`
	Required bool      `yaml:"required"`
	Choices  []string  `yaml:"choices,omitempty"`
}

// TemplateProvider resolves the additional-field template for a card id.
type TemplateProvider interface {
	FieldTemplate(cardID string) ([]FieldSpec, error)
}

type templateFile struct {
	Cards []struct {
		ID     string      `yaml:"id"`
		Fields []FieldSpec `yaml:"fields"`
	} `yaml:"cards"`
}

// StaticTemplateProvider serves templates from memory.
type StaticTemplateProvider struct {
	templates map[string][]FieldSpec
}

// NewStaticTemplateProvider wraps an in-memory template set.
func NewStaticTemplateProvider(templates map[string][]FieldSpec) *StaticTemplateProvider {
	if templates == nil {
		templates = map[string][]FieldSpec{}
	}
	return &StaticTemplateProvider{templates: templates}
}

// LoadTemplateFile parses a YAML template file.
func LoadTemplateFile(path string) (*StaticTemplateProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card templates %s: %w", path, err)
	}
	return ParseTemplates(data)
}

// ParseTemplates decodes YAML template content.
func ParseTemplates(data []byte) (*StaticTemplateProvider, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse card templates: %w", err)
	}
	templates := make(map[string][]FieldSpec, len(file.Cards))
	for _, card := range file.Cards {
		id := strings.TrimSpace(card.ID)
		if id == "" {
			return nil, errors.New("parse card templates: card without id")
		}
		if _, dup := templates[id]; dup {
			return nil, fmt.Errorf("parse card templates: duplicate card %q", id)
		}
		seen := map[string]bool{}
		for i := range card.Fields {
			field := &card.Fields[i]
			if field.Kind == "" {
				field.Kind = InputText
			}
			if field.ID == "" {
				return nil, fmt.Errorf("parse card templates: card %q has a field without id", id)
			}
			if seen[field.ID] {
				return nil, fmt.Errorf("parse card templates: card %q repeats field %q", id, field.ID)
			}
			seen[field.ID] = true
			if field.Kind == InputChoiceSet && len(field.Choices) == 0 {
				return nil, fmt.Errorf("parse card templates: choice field %q has no choices", field.ID)
			}
		}
		templates[id] = card.Fields
	}
	return NewStaticTemplateProvider(templates), nil
}

// FieldTemplate returns a copy of the template for cardID, falling back to the default card.
func (p *StaticTemplateProvider) FieldTemplate(cardID string) ([]FieldSpec, error) {
	if cardID == "" {
		cardID = DefaultCardID
	}
	fields, ok := p.templates[cardID]
	if !ok {
		fields, ok = p.templates[DefaultCardID]
	}
	if !ok {
		if len(p.templates) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, cardID)
	}
	return append([]FieldSpec(nil), fields...), nil
}

// ValidateFields returns the ids of required fields that are missing or malformed.
// TextBlock fields are display-only and never validated.
func ValidateFields(fields []FieldSpec, values map[string]string) []string {
	var invalid []string
	for _, field := range fields {
		if field.Kind == InputTextBlock {
			continue
		}
		value := strings.TrimSpace(values[field.ID])
		if value == "" {
			if field.Required {
				invalid = append(invalid, field.ID)
			}
			continue
		}
		switch field.Kind {
		case InputDate:
			if _, err := time.Parse(DateLayout, value); err != nil {
				invalid = append(invalid, field.ID)
			}
		case InputChoiceSet:
			if !containsFold(field.Choices, value) {
				invalid = append(invalid, field.ID)
			}
		}
	}
	return invalid
}

func containsFold(choices []string, value string) bool {
	for _, choice := range choices {
		if strings.EqualFold(choice, value) {
			return true
		}
	}
	return false
}
