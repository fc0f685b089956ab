package connector

import (
	"sort"

	"golang.org/x/sync/errgroup"
)

// ConcurrentMap runs f over every input with bounded concurrency,
// returning outputs in the same order as inputs regardless of
// completion order. Table introspection issues one round-trip per
// table; running them concurrently keeps Snapshot from serializing
// behind network latency the way a naive loop would.
func ConcurrentMap[Tin any, Tout any](inputs []Tin, concurrency int, f func(Tin) (Tout, error)) ([]Tout, error) {
	eg := errgroup.Group{}
	if concurrency > 0 {
		eg.SetLimit(concurrency)
	}

	type ordered struct {
		order int
		out   Tout
	}
	results := make([]ordered, len(inputs))

	for i := range inputs {
		i := i
		eg.Go(func() error {
			out, err := f(inputs[i])
			if err != nil {
				return err
			}
			results[i] = ordered{order: i, out: out}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(a, b int) bool { return results[a].order < results[b].order })
	outputs := make([]Tout, len(results))
	for i, r := range results {
		outputs[i] = r.out
	}
	return outputs, nil
}
