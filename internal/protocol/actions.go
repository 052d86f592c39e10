package protocol

// ActionRegistration records an executable WASM module: its module-info hash,
// the hash of the binary artifact, and where the artifact lives.
type ActionRegistration struct {
	// Hash is the sha256 of the canonical module-info JSON, hex encoded.
	Hash string `json:"hash"`
	// WasmHash is the sha256 of the WASM binary, hex encoded.
	WasmHash string `json:"wasm_hash"`
	// TopicID locates the stored binary artifact.
	TopicID string `json:"t_id"`
	// InfoTopicID optionally locates a stored metadata blob.
	InfoTopicID string `json:"info_t_id,omitempty"`
}

// Protocol implements Operation.
func (*ActionRegistration) Protocol() string { return ProtocolAction }

// Op implements Operation.
func (*ActionRegistration) Op() string { return OpRegister }

// Validate implements Operation.
func (r *ActionRegistration) Validate() error {
	if !validHexHash(r.Hash) {
		return invalid("hash", "must be 64 lowercase hex characters")
	}
	if !validHexHash(r.WasmHash) {
		return invalid("wasm_hash", "must be 64 lowercase hex characters")
	}
	if r.TopicID == "" {
		return invalid("t_id", "artifact location is required")
	}
	return nil
}

// ModuleInfo describes a WASM action module. The shape mirrors the module's
// own self-description returned by its info export.
type ModuleInfo struct {
	Name             string       `json:"name"`
	Version          string       `json:"version"`
	HashlinksVersion string       `json:"hashlinks_version,omitempty"`
	Creator          string       `json:"creator,omitempty"`
	Purpose          string       `json:"purpose,omitempty"`
	Actions          []ActionSpec `json:"actions,omitempty"`
	Capabilities     []Capability `json:"capabilities,omitempty"`
	Plugins          []PluginSpec `json:"plugins,omitempty"`
}

// ActionSpec declares one callable action within a module.
type ActionSpec struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	Inputs               []ParameterSpec `json:"inputs,omitempty"`
	Outputs              []ParameterSpec `json:"outputs,omitempty"`
	RequiredCapabilities []Capability    `json:"required_capabilities,omitempty"`
}

// ParameterSpec declares one typed input or output parameter.
type ParameterSpec struct {
	Name        string          `json:"name"`
	Type        string          `json:"param_type"`
	Description string          `json:"description,omitempty"`
	Required    bool            `json:"required"`
	Validation  *ValidationRule `json:"validation,omitempty"`
}

// ValidationRule bounds a numeric parameter.
type ValidationRule struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Capability is a tagged capability grant, e.g. {"type":"network","value":{...}}.
type Capability struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value,omitempty"`
}

// PluginSpec declares an external plugin dependency of a module.
type PluginSpec struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}
