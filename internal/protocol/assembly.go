package protocol

// Assembly operations fold, in log order, into one AssemblyState per topic.
// Only the shapes live here; the fold itself belongs to the assembly registry.

// AssemblyRegister creates (or resets) the assembly on its topic.
type AssemblyRegister struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Protocol implements Operation.
func (*AssemblyRegister) Protocol() string { return ProtocolAssembly }

// Op implements Operation.
func (*AssemblyRegister) Op() string { return OpRegister }

// Validate implements Operation.
func (r *AssemblyRegister) Validate() error {
	if r.Name == "" {
		return invalid("name", "assembly name is required")
	}
	if r.Version == "" {
		return invalid("version", "assembly version is required")
	}
	return nil
}

// AssemblyAddAction appends an action reference to the assembly.
type AssemblyAddAction struct {
	// Reference is the topic id the action registration lives on.
	Reference string `json:"t_id"`
	// Alias is the local name blocks bind against.
	Alias  string         `json:"alias"`
	Config map[string]any `json:"config,omitempty"`
}

// Protocol implements Operation.
func (*AssemblyAddAction) Protocol() string { return ProtocolAssembly }

// Op implements Operation.
func (*AssemblyAddAction) Op() string { return OpAddAction }

// Validate implements Operation.
func (a *AssemblyAddAction) Validate() error {
	if a.Reference == "" {
		return invalid("t_id", "action reference topic is required")
	}
	if a.Alias == "" {
		return invalid("alias", "action alias is required")
	}
	return nil
}

// AssemblyAddBlock appends a block reference to the assembly.
type AssemblyAddBlock struct {
	// Reference is the topic id the block registration lives on.
	Reference string `json:"t_id"`
	// ActionBindings maps template action aliases to action references
	// declared on this assembly (by alias or reference topic id).
	ActionBindings map[string]string `json:"actions,omitempty"`
	// AttributeOverrides replaces defaults from the block definition.
	AttributeOverrides map[string]any `json:"attributes,omitempty"`
	// ChildAliases names other blocks of this assembly nested inside this one.
	ChildAliases []string `json:"children,omitempty"`
}

// Protocol implements Operation.
func (*AssemblyAddBlock) Protocol() string { return ProtocolAssembly }

// Op implements Operation.
func (*AssemblyAddBlock) Op() string { return OpAddBlock }

// Validate implements Operation.
func (b *AssemblyAddBlock) Validate() error {
	if b.Reference == "" {
		return invalid("t_id", "block reference topic is required")
	}
	for alias, target := range b.ActionBindings {
		if alias == "" || target == "" {
			return invalid("actions", "bindings must map non-empty aliases to non-empty references")
		}
	}
	return nil
}

// AssemblyUpdate merges metadata into the registered assembly. Absent fields
// are left untouched (partial update, not replace).
type AssemblyUpdate struct {
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Protocol implements Operation.
func (*AssemblyUpdate) Protocol() string { return ProtocolAssembly }

// Op implements Operation.
func (*AssemblyUpdate) Op() string { return OpUpdate }

// Validate implements Operation.
func (u *AssemblyUpdate) Validate() error {
	if u.Description == nil && u.Tags == nil {
		return invalid("op", "update carries no fields")
	}
	return nil
}
