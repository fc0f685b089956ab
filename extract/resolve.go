package extract

import (
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
)

// resolver answers "what FQN does this bare/qualified name mean" against
// one catalog's known table/view names, in preference order: exact
// (default_schema, name), then a unique cross-schema match, then
// ambiguous (warning, excluded from the result).
type resolver struct {
	defaultSchema string
	byNameLower   map[string][]catalog.FQN // name (lowercased) -> candidates across schemas
	exact         map[string]catalog.FQN   // "schema.name" lowercased -> FQN
}

func newResolver(defaultSchema string, known []catalog.FQN) *resolver {
	r := &resolver{
		defaultSchema: defaultSchema,
		byNameLower:   map[string][]catalog.FQN{},
		exact:         map[string]catalog.FQN{},
	}
	for _, fqn := range known {
		nameKey := strings.ToLower(fqn.Name)
		r.byNameLower[nameKey] = append(r.byNameLower[nameKey], fqn)
		r.exact[fqn.Key()] = fqn
	}
	return r
}

// resolve looks up a possibly schema-qualified raw name. ok is false
// when the name could not be resolved (unknown, or ambiguous — in
// which case a Warning describing the ambiguity is also returned).
func (r *resolver) resolve(schema, name string) (fqn catalog.FQN, ok bool, warn *Warning) {
	if schema != "" {
		candidate := catalog.NewFQN(schema, name)
		if got, found := r.exact[candidate.Key()]; found {
			return got, true, nil
		}
		return catalog.FQN{}, false, nil
	}

	if got, found := r.exact[catalog.NewFQN(r.defaultSchema, name).Key()]; found {
		return got, true, nil
	}

	candidates := r.byNameLower[strings.ToLower(name)]
	switch len(candidates) {
	case 0:
		return catalog.FQN{}, false, nil
	case 1:
		return candidates[0], true, nil
	default:
		return catalog.FQN{}, false, &Warning{
			Identifier: name,
			Message:    "ambiguous across multiple schemas",
		}
	}
}
