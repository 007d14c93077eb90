package conceptgraph

import "strings"

// Concept is a node in the prerequisite graph.
type Concept struct {
	ID            string   `json:"-" yaml:"-"`
	DisplayName   string   `json:"display_name" yaml:"display_name"`
	Topic         string   `json:"topic" yaml:"topic"`
	Subtopic      string   `json:"subtopic" yaml:"subtopic"`
	Prerequisites []string `json:"prerequisites" yaml:"prerequisites"`

	// Difficulty is the typical item difficulty (1-5) for the concept. Used
	// as the default when banking questions that carry no difficulty.
	Difficulty int `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
}

// Name returns the display name, or a readable form of the ID when the
// concept has none.
func (c Concept) Name() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return ReadableID(c.ID)
}

// ReadableID turns "integration_by_parts" into "integration by parts".
func ReadableID(id string) string {
	return strings.ReplaceAll(id, "_", " ")
}
