package cluster

import "context"

// Alternatives is the clustering collaborator that suggests similar queues
// when one is full. The model behind it is external; a nil or failing
// implementation simply yields no suggestions.
type Alternatives interface {
	Alternatives(ctx context.Context, queueID int64, n int) ([]int64, error)
}

// Static serves alternatives from a fixed map, used in tests and as a stand-in
// until the model endpoint is configured.
type Static struct {
	ByQueue map[int64][]int64
}

func (s *Static) Alternatives(_ context.Context, queueID int64, n int) ([]int64, error) {
	alternatives := s.ByQueue[queueID]
	if len(alternatives) > n {
		alternatives = alternatives[:n]
	}
	return alternatives, nil
}
