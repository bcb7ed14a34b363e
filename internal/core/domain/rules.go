package domain

import "time"

// Rules shapes the system prompt of a workspace.
type Rules struct {
	Personality string `json:"personality,omitempty" yaml:"personality,omitempty"`
	Tone        string `json:"tone,omitempty" yaml:"tone,omitempty"`
	Style       string `json:"style,omitempty" yaml:"style,omitempty"`
	Domain      string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Constraints string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// IsEmpty returns true when no field is set.
func (r Rules) IsEmpty() bool {
	return r == Rules{}
}

// WorkspaceRules is the stored rules record of one workspace.
type WorkspaceRules struct {
	WorkspaceID string    `json:"workspace_id"`
	Rules       Rules     `json:"content"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SystemPromptSource selects where the system prompt comes from.
// The two sources are mutually exclusive.
type SystemPromptSource string

// Available system prompt sources.
const (
	// SystemPromptRules renders the workspace rules.
	SystemPromptRules SystemPromptSource = "rules"

	// SystemPromptTemplate uses the fixed instruction template.
	SystemPromptTemplate SystemPromptSource = "template"
)

// IsValid returns true if the source is recognised.
func (s SystemPromptSource) IsValid() bool {
	return s == SystemPromptRules || s == SystemPromptTemplate
}

// String returns the string representation.
func (s SystemPromptSource) String() string {
	return string(s)
}
