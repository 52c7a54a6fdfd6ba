package brackets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/tcg-arena/models"
	"github.com/dominikbraun/graph"
)

// ProgressionEdge links a match to the later match one of its slot
// participants moved on to. In double elimination this captures both the
// winner line and the drop into the loser bracket.
type ProgressionEdge struct {
	FromMatchID int `json:"from_match_id"`
	ToMatchID   int `json:"to_match_id"`
}

// BuildProgression assembles the match DAG of an elimination bracket:
// vertices are matches, edges follow each participant from a match to
// their next one. The graph is directed and acyclic; a cycle means the
// stored rounds are corrupt and is reported as ErrInvalidFormatState.
func BuildProgression(rounds []*models.Round) (graph.Graph[int, *models.Match], error) {
	g := graph.New(func(m *models.Match) int { return m.ID }, graph.Directed(), graph.Acyclic())

	type appearance struct {
		match *models.Match
		round int
	}
	byParticipant := make(map[int][]appearance)

	for _, r := range rounds {
		for i := range r.Matches {
			m := &r.Matches[i]
			if err := g.AddVertex(m); err != nil {
				return nil, fmt.Errorf("progression vertex for match %d: %w", m.ID, err)
			}
			byParticipant[m.P1ID] = append(byParticipant[m.P1ID], appearance{match: m, round: r.Number})
			if m.P2ID != nil {
				byParticipant[*m.P2ID] = append(byParticipant[*m.P2ID], appearance{match: m, round: r.Number})
			}
		}
	}

	for _, apps := range byParticipant {
		sort.SliceStable(apps, func(i, j int) bool { return apps[i].round < apps[j].round })
		for i := 0; i+1 < len(apps); i++ {
			err := g.AddEdge(apps[i].match.ID, apps[i+1].match.ID)
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("%w: progression edge %d->%d: %v",
					ErrInvalidFormatState, apps[i].match.ID, apps[i+1].match.ID, err)
			}
		}
	}

	return g, nil
}

// ProgressionEdges flattens the match DAG for transport payloads, in
// deterministic order.
func ProgressionEdges(rounds []*models.Round) ([]ProgressionEdge, error) {
	g, err := BuildProgression(rounds)
	if err != nil {
		return nil, err
	}
	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("progression adjacency: %w", err)
	}

	edges := make([]ProgressionEdge, 0, len(adjacency))
	for from, targets := range adjacency {
		for to := range targets {
			edges = append(edges, ProgressionEdge{FromMatchID: from, ToMatchID: to})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromMatchID != edges[j].FromMatchID {
			return edges[i].FromMatchID < edges[j].FromMatchID
		}
		return edges[i].ToMatchID < edges[j].ToMatchID
	})
	return edges, nil
}
