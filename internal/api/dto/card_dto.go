package dto

// CardResponse is the wire form of a rendered card.
type CardResponse struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle,omitempty"`
	Facts    []FactResponse   `json:"facts,omitempty"`
	Inputs   []InputResponse  `json:"inputs,omitempty"`
	Actions  []ActionResponse `json:"actions,omitempty"`
	Footer   string           `json:"footer,omitempty"`
}

// FactResponse is a label/value line.
type FactResponse struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// InputResponse is one form control.
type InputResponse struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Value    string   `json:"value,omitempty"`
	Choices  []string `json:"choices,omitempty"`
	Required bool     `json:"required"`
	Invalid  bool     `json:"invalid,omitempty"`
}

// ActionResponse is a card button. Value is the activity value it submits.
type ActionResponse struct {
	ID    string            `json:"id"`
	Label string            `json:"label"`
	Value map[string]string `json:"value"`
}
