package resolver

import (
	"fmt"

	"github.com/rzbill/hashlink/internal/registry/assembly"
)

// ValidateComposition checks the internal consistency of an assembly's
// composition graph without touching any topic: action aliases must be
// unique, every action binding must name a declared action (by alias or
// reference) and every child alias must name another block of the assembly.
// Returns one message per violation.
func ValidateComposition(st *assembly.State) []string {
	var problems []string

	seenAlias := map[string]bool{}
	actionNames := map[string]bool{}
	for _, a := range st.Actions {
		if a.Alias != "" && seenAlias[a.Alias] {
			problems = append(problems, fmt.Sprintf("Duplicate action alias: %s", a.Alias))
		}
		seenAlias[a.Alias] = true
		actionNames[a.Alias] = true
		actionNames[a.Reference] = true
	}
	blockRefs := map[string]bool{}
	for _, b := range st.Blocks {
		blockRefs[b.Reference] = true
	}

	for _, b := range st.Blocks {
		for _, target := range b.ActionBindings {
			if !actionNames[target] {
				problems = append(problems, fmt.Sprintf("Block %s references non-existent action: %s", b.Reference, target))
			}
		}
		for _, child := range b.ChildAliases {
			if !blockRefs[child] {
				problems = append(problems, fmt.Sprintf("Block %s references non-existent child block: %s", b.Reference, child))
			}
		}
	}
	return problems
}
