package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IDType selects the identifier form of a NodeID.
type IDType uint8

const (
	// IDTypeNumeric identifies a node by namespace-scoped integer.
	IDTypeNumeric IDType = 0

	// IDTypeString identifies a node by namespace-scoped string.
	IDTypeString IDType = 1

	// IDTypeGUID identifies a node by UUID.
	IDTypeGUID IDType = 2
)

// NodeID identifies a node in the server address space.
type NodeID struct {
	Namespace uint16    `cbor:"1,keyasint,omitempty"`
	Type      IDType    `cbor:"2,keyasint,omitempty"`
	Numeric   uint32    `cbor:"3,keyasint,omitempty"`
	Text      string    `cbor:"4,keyasint,omitempty"`
	GUID      uuid.UUID `cbor:"5,keyasint,omitempty"`
}

// NewNumericNodeID returns a numeric NodeID.
func NewNumericNodeID(ns uint16, id uint32) NodeID {
	return NodeID{Namespace: ns, Type: IDTypeNumeric, Numeric: id}
}

// NewStringNodeID returns a string NodeID.
func NewStringNodeID(ns uint16, id string) NodeID {
	return NodeID{Namespace: ns, Type: IDTypeString, Text: id}
}

// NewGUIDNodeID returns a GUID NodeID.
func NewGUIDNodeID(ns uint16, id uuid.UUID) NodeID {
	return NodeID{Namespace: ns, Type: IDTypeGUID, GUID: id}
}

// IsZero reports whether the NodeID is the zero value.
func (n NodeID) IsZero() bool {
	return n == NodeID{}
}

// String renders the NodeID in "ns=<n>;<t>=<id>" form.
func (n NodeID) String() string {
	switch n.Type {
	case IDTypeString:
		return fmt.Sprintf("ns=%d;s=%s", n.Namespace, n.Text)
	case IDTypeGUID:
		return fmt.Sprintf("ns=%d;g=%s", n.Namespace, n.GUID)
	default:
		return fmt.Sprintf("ns=%d;i=%d", n.Namespace, n.Numeric)
	}
}

// ParseNodeID parses the "ns=<n>;<t>=<id>" form. The namespace part is
// optional and defaults to 0.
func ParseNodeID(s string) (NodeID, error) {
	var n NodeID

	rest := s
	if strings.HasPrefix(rest, "ns=") {
		semi := strings.Index(rest, ";")
		if semi < 0 {
			return n, fmt.Errorf("invalid node id %q: missing identifier", s)
		}
		ns, err := strconv.ParseUint(rest[3:semi], 10, 16)
		if err != nil {
			return n, fmt.Errorf("invalid node id %q: bad namespace: %w", s, err)
		}
		n.Namespace = uint16(ns)
		rest = rest[semi+1:]
	}

	if len(rest) < 2 || rest[1] != '=' {
		return n, fmt.Errorf("invalid node id %q: missing type prefix", s)
	}

	value := rest[2:]
	switch rest[0] {
	case 'i':
		id, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return n, fmt.Errorf("invalid node id %q: bad numeric identifier: %w", s, err)
		}
		n.Type = IDTypeNumeric
		n.Numeric = uint32(id)
	case 's':
		n.Type = IDTypeString
		n.Text = value
	case 'g':
		id, err := uuid.Parse(value)
		if err != nil {
			return n, fmt.Errorf("invalid node id %q: bad guid: %w", s, err)
		}
		n.Type = IDTypeGUID
		n.GUID = id
	default:
		return n, fmt.Errorf("invalid node id %q: unknown type %q", s, rest[0])
	}

	return n, nil
}

// QualifiedName is a namespace-qualified browse name.
type QualifiedName struct {
	Namespace uint16 `cbor:"1,keyasint,omitempty"`
	Name      string `cbor:"2,keyasint,omitempty"`
}

// ParseQualifiedName parses the "<ns>:<name>" form; a missing prefix means
// namespace 0.
func ParseQualifiedName(s string) (QualifiedName, error) {
	colon := strings.Index(s, ":")
	if colon < 0 {
		return QualifiedName{Name: s}, nil
	}
	ns, err := strconv.ParseUint(s[:colon], 10, 16)
	if err != nil {
		// A leading segment that is not a number is part of the name.
		return QualifiedName{Name: s}, nil
	}
	return QualifiedName{Namespace: uint16(ns), Name: s[colon+1:]}, nil
}

// String renders the qualified name in "<ns>:<name>" form.
func (q QualifiedName) String() string {
	if q.Namespace == 0 {
		return q.Name
	}
	return fmt.Sprintf("%d:%s", q.Namespace, q.Name)
}
