package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Protocol tags. Registries silently skip messages carrying a tag they do not
// own, so unrelated protocols can share a transport.
const (
	ProtocolAction   = "hashlink-action"
	ProtocolBlock    = "hashlink-block"
	ProtocolAssembly = "hashlink-assembly"
)

// Operation names.
const (
	OpRegister  = "register"
	OpAddAction = "add-action"
	OpAddBlock  = "add-block"
	OpUpdate    = "update"
)

// Operation is one decoded, protocol-tagged message body. The concrete types
// form a closed union; Decode is the only constructor from wire bytes.
type Operation interface {
	// Protocol returns the protocol tag this operation belongs to.
	Protocol() string
	// Op returns the operation name within the protocol.
	Op() string
	// Validate checks the operation's fields, returning a *ValidationError
	// naming the offending field on failure.
	Validate() error
}

// ErrUnknownProtocol reports a message whose protocol tag is not one of ours.
// Sync treats it as "not addressed to this registry" and skips silently.
var ErrUnknownProtocol = errors.New("protocol: unknown protocol tag")

// ValidationError reports a malformed registration or operation payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("protocol: invalid field %q: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

var hexHashRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

func validHexHash(s string) bool { return hexHashRe.MatchString(s) }

// envelope is the minimal shape every message body must carry.
type envelope struct {
	Protocol  string `json:"p"`
	Operation string `json:"op"`
}

// Encode marshals op with its protocol tag and operation name injected.
func Encode(op Operation) ([]byte, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	m["p"] = mustJSON(op.Protocol())
	m["op"] = mustJSON(op.Op())
	return json.Marshal(m)
}

func mustJSON(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// Decode parses a message body into its concrete operation type. It returns
// ErrUnknownProtocol for tags outside this protocol family, and a
// *ValidationError for recognized tags with malformed content. The returned
// operation is already validated.
func Decode(raw []byte) (Operation, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, invalid("p", "message body is not a JSON object")
	}
	if env.Protocol == "" {
		return nil, invalid("p", "missing protocol tag")
	}

	var op Operation
	switch env.Protocol {
	case ProtocolAction:
		if env.Operation != OpRegister {
			return nil, invalid("op", fmt.Sprintf("unknown action operation %q", env.Operation))
		}
		op = &ActionRegistration{}
	case ProtocolBlock:
		if env.Operation != OpRegister {
			return nil, invalid("op", fmt.Sprintf("unknown block operation %q", env.Operation))
		}
		op = &BlockRegistration{}
	case ProtocolAssembly:
		switch env.Operation {
		case OpRegister:
			op = &AssemblyRegister{}
		case OpAddAction:
			op = &AssemblyAddAction{}
		case OpAddBlock:
			op = &AssemblyAddBlock{}
		case OpUpdate:
			op = &AssemblyUpdate{}
		default:
			return nil, invalid("op", fmt.Sprintf("unknown assembly operation %q", env.Operation))
		}
	default:
		return nil, ErrUnknownProtocol
	}

	if err := json.Unmarshal(raw, op); err != nil {
		return nil, invalid("op", err.Error())
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	return op, nil
}
