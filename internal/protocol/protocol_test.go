package protocol

import (
	"errors"
	"strings"
	"testing"
)

const testHash = "a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := &ActionRegistration{Hash: testHash, WasmHash: testHash, TopicID: "t.5"}
	raw, err := Encode(orig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(raw), `"p":"hashlink-action"`) {
		t.Fatalf("envelope tag missing: %s", raw)
	}
	op, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := op.(*ActionRegistration)
	if !ok {
		t.Fatalf("decoded wrong type: %T", op)
	}
	if got.Hash != orig.Hash || got.TopicID != orig.TopicID {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodeUnknownProtocolTag(t *testing.T) {
	_, err := Decode([]byte(`{"p":"other-registry","op":"register","name":"other"}`))
	if !errors.Is(err, ErrUnknownProtocol) {
		t.Fatalf("want ErrUnknownProtocol, got %v", err)
	}
}

func TestDecodeMissingTag(t *testing.T) {
	var verr *ValidationError
	_, err := Decode([]byte(`{"op":"register"}`))
	if !errors.As(err, &verr) || verr.Field != "p" {
		t.Fatalf("want validation error on p, got %v", err)
	}
}

func TestDecodeUnknownOperation(t *testing.T) {
	var verr *ValidationError
	_, err := Decode([]byte(`{"p":"hashlink-assembly","op":"destroy"}`))
	if !errors.As(err, &verr) || verr.Field != "op" {
		t.Fatalf("want validation error on op, got %v", err)
	}
}

func TestActionRegistrationValidation(t *testing.T) {
	cases := []struct {
		name  string
		reg   ActionRegistration
		field string
	}{
		{"bad hash", ActionRegistration{Hash: "zz", WasmHash: testHash, TopicID: "t.1"}, "hash"},
		{"uppercase hash", ActionRegistration{Hash: strings.ToUpper(testHash), WasmHash: testHash, TopicID: "t.1"}, "hash"},
		{"bad wasm hash", ActionRegistration{Hash: testHash, WasmHash: "short", TopicID: "t.1"}, "wasm_hash"},
		{"missing topic", ActionRegistration{Hash: testHash, WasmHash: testHash}, "t_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var verr *ValidationError
			err := tc.reg.Validate()
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("want error on %q, got %v", tc.field, err)
			}
		})
	}
	ok := ActionRegistration{Hash: testHash, WasmHash: testHash, TopicID: "t.1"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid registration rejected: %v", err)
	}
}

func TestAssemblyOperationValidation(t *testing.T) {
	if err := (&AssemblyRegister{Version: "1.0.0"}).Validate(); err == nil {
		t.Fatalf("register without name accepted")
	}
	if err := (&AssemblyAddAction{Reference: "t.1"}).Validate(); err == nil {
		t.Fatalf("add-action without alias accepted")
	}
	if err := (&AssemblyAddBlock{}).Validate(); err == nil {
		t.Fatalf("add-block without reference accepted")
	}
	if err := (&AssemblyUpdate{}).Validate(); err == nil {
		t.Fatalf("empty update accepted")
	}
	desc := "new"
	if err := (&AssemblyUpdate{Description: &desc}).Validate(); err != nil {
		t.Fatalf("valid update rejected: %v", err)
	}
}

func TestDecodeAssemblyOperations(t *testing.T) {
	raw, err := Encode(&AssemblyAddBlock{Reference: "t.9", ActionBindings: map[string]string{"x": "t.1"}, ChildAliases: []string{"t.8"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	op, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	blk, ok := op.(*AssemblyAddBlock)
	if !ok || blk.ActionBindings["x"] != "t.1" || len(blk.ChildAliases) != 1 {
		t.Fatalf("decoded wrong shape: %#v", op)
	}
}
