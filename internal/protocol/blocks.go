package protocol

// BlockRegistration records a UI block: where its definition and template
// blobs live in content-addressed storage. Both ids are sha256 digests of the
// stored bytes, so fetches are integrity-checked by construction.
type BlockRegistration struct {
	Name         string `json:"name,omitempty"`
	DefinitionID string `json:"definition_id"`
	TemplateID   string `json:"template_id"`
}

// Protocol implements Operation.
func (*BlockRegistration) Protocol() string { return ProtocolBlock }

// Op implements Operation.
func (*BlockRegistration) Op() string { return OpRegister }

// Validate implements Operation.
func (r *BlockRegistration) Validate() error {
	if !validHexHash(r.DefinitionID) {
		return invalid("definition_id", "must be 64 lowercase hex characters")
	}
	if !validHexHash(r.TemplateID) {
		return invalid("template_id", "must be 64 lowercase hex characters")
	}
	return nil
}

// BlockDefinition is the decoded definition blob of a block: its display
// metadata, default attributes, and the action aliases it expects bound.
type BlockDefinition struct {
	Name       string         `json:"name"`
	Version    string         `json:"version,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	// Actions lists the action aliases the template references.
	Actions []string `json:"actions,omitempty"`
}
