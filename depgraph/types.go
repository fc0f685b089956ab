// Package depgraph implements the dependency graph: a directed
// multigraph over schema objects supporting reverse-reachability
// impact analysis and Tarjan strongly-connected-component cycle
// detection.
package depgraph

import (
	"encoding/json"

	"github.com/dbforensic/dbforensic/catalog"
)

// ObjectKind distinguishes the four node types a dependency graph can
// hold.
type ObjectKind int

const (
	KindTable ObjectKind = iota
	KindView
	KindProcedure
	KindFunction
)

func (k ObjectKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindView:
		return "view"
	case KindProcedure:
		return "procedure"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

func (k ObjectKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// ObjectRef identifies one node: a schema object of a given kind.
type ObjectRef struct {
	Kind ObjectKind  `json:"kind"`
	FQN  catalog.FQN `json:"fqn"`
}

func (o ObjectRef) Key() string {
	return o.Kind.String() + ":" + o.FQN.Key()
}

func (o ObjectRef) Equal(other ObjectRef) bool {
	return o.Key() == other.Key()
}

// Less orders refs first by FQN, then by kind, giving a stable total
// order usable for tie-breaking.
func (o ObjectRef) Less(other ObjectRef) bool {
	if !o.FQN.Equal(other.FQN) {
		return o.FQN.Less(other.FQN)
	}
	return o.Kind < other.Kind
}

// EdgeKind names the relationship an edge represents.
type EdgeKind int

const (
	EdgeForeignKey EdgeKind = iota
	EdgeJoins
	EdgeReferences
	EdgeCalls
	EdgeNamingImplied
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeForeignKey:
		return "foreign_key"
	case EdgeJoins:
		return "joins"
	case EdgeReferences:
		return "references"
	case EdgeCalls:
		return "calls"
	case EdgeNamingImplied:
		return "naming_implied"
	default:
		return "unknown"
	}
}

func (k EdgeKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// EdgeOrigin names what produced an edge, which in turn fixes its
// confidence (spec invariant: confidence is determined by origin).
type EdgeOrigin int

const (
	OriginCatalogFK EdgeOrigin = iota
	OriginBodyJoin
	OriginBodyReference
	OriginBodyCall
	OriginNamingHeuristic
)

func (o EdgeOrigin) String() string {
	switch o {
	case OriginCatalogFK:
		return "catalog_fk"
	case OriginBodyJoin:
		return "body_join"
	case OriginBodyReference:
		return "body_reference"
	case OriginBodyCall:
		return "body_call"
	case OriginNamingHeuristic:
		return "naming_heuristic"
	default:
		return "unknown"
	}
}

func (o EdgeOrigin) MarshalJSON() ([]byte, error) { return json.Marshal(o.String()) }

// Edge is one directed dependency-graph edge. Confidence is fixed by
// Origin: CatalogFK=100, BodyJoin=80, BodyReference=70, BodyCall=90,
// NamingHeuristic=60 or 95.
type Edge struct {
	Source     ObjectRef   `json:"source"`
	Target     ObjectRef   `json:"target"`
	Kind       EdgeKind    `json:"kind"`
	Confidence uint8       `json:"confidence"`
	Origin     EdgeOrigin  `json:"origin"`
	Via        catalog.FQN `json:"via,omitempty"` // originating routine/view, zero value if not applicable
}

// ConfidenceFor returns the fixed confidence for an origin, with
// strong defaulting to the strong-match variant of NamingHeuristic.
func ConfidenceFor(origin EdgeOrigin, strong bool) uint8 {
	switch origin {
	case OriginCatalogFK:
		return 100
	case OriginBodyJoin:
		return 80
	case OriginBodyReference:
		return 70
	case OriginBodyCall:
		return 90
	case OriginNamingHeuristic:
		if strong {
			return 95
		}
		return 60
	default:
		return 0
	}
}
