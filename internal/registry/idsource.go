package registry

import (
	"github.com/rzbill/hashlink/internal/transport"
	"github.com/rzbill/hashlink/pkg/id"
)

// IDSource assigns ids to locally registered entries. The receipt is non-nil
// exactly when a transport acknowledged the append, so implementations never
// need to ask whether the registry is attached.
type IDSource interface {
	AssignID(receipt *transport.Receipt) string
}

// TransportAssignedIDs uses the log-assigned sequence number as the entry id.
// This is the attached-mode default: ids are stable across processes because
// the log, not the client, hands them out.
type TransportAssignedIDs struct{}

func (TransportAssignedIDs) AssignID(receipt *transport.Receipt) string {
	if receipt == nil {
		return ""
	}
	return transportEntryID(receipt.SequenceNumber)
}

// LocalMonotonicIDs synthesizes sortable ids from a local generator. This is
// the detached-mode default; the ids are only meaningful inside this process.
type LocalMonotonicIDs struct {
	gen *id.Generator
}

// NewLocalMonotonicIDs returns a LocalMonotonicIDs backed by a fresh
// generator.
func NewLocalMonotonicIDs() *LocalMonotonicIDs {
	return &LocalMonotonicIDs{gen: id.NewGenerator()}
}

func (s *LocalMonotonicIDs) AssignID(_ *transport.Receipt) string {
	return s.gen.Next().String()
}
