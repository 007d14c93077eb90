package conceptgraph

import (
	"fmt"
	"strings"
)

// validateConcepts performs all structural checks on the given concept set.
// Returns a combined error describing all problems found, or nil if valid.
func validateConcepts(concepts []Concept) error {
	var errs []string

	if len(concepts) == 0 {
		return fmt.Errorf("concept graph validation failed:\n  graph is empty")
	}

	idSet := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		if strings.TrimSpace(c.ID) == "" {
			errs = append(errs, "concept with empty ID")
			continue
		}
		if idSet[c.ID] {
			errs = append(errs, fmt.Sprintf("duplicate concept ID: %q", c.ID))
		}
		idSet[c.ID] = true
		if c.Difficulty < 0 || c.Difficulty > 5 {
			errs = append(errs, fmt.Sprintf("concept %q difficulty must be in [1, 5], got %d", c.ID, c.Difficulty))
		}
	}

	for _, c := range concepts {
		for _, prereqID := range c.Prerequisites {
			if prereqID == c.ID {
				errs = append(errs, fmt.Sprintf("concept %q lists itself as a prerequisite", c.ID))
				continue
			}
			if !idSet[prereqID] {
				errs = append(errs, fmt.Sprintf("concept %q references nonexistent prerequisite %q", c.ID, prereqID))
			}
		}
	}

	// Cycle check with Kahn's algorithm over known edges only.
	inDegree := make(map[string]int, len(concepts))
	adjList := make(map[string][]string)
	for _, c := range concepts {
		inDegree[c.ID] += 0
		for _, prereqID := range c.Prerequisites {
			if !idSet[prereqID] || prereqID == c.ID {
				continue
			}
			inDegree[c.ID]++
			adjList[prereqID] = append(adjList[prereqID], c.ID)
		}
	}

	var queue []string
	for _, c := range concepts {
		if inDegree[c.ID] == 0 {
			queue = append(queue, c.ID)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, depID := range adjList[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}
	if visited < len(idSet) {
		var cycleNodes []string
		for _, c := range concepts {
			if inDegree[c.ID] > 0 {
				cycleNodes = append(cycleNodes, c.ID)
			}
		}
		errs = append(errs, fmt.Sprintf("cycle detected involving concepts: %s", strings.Join(cycleNodes, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("concept graph validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
