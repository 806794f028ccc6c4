package engine

import (
	"context"
	"fmt"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/schema"
)

// ReplayReport is the outcome of Replay.
type ReplayReport struct {
	Events      int    `json:"events"`
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
	Fingerprint string `json:"fingerprint"`
	// Deterministic is true when two independent projections of the log
	// produced the same fingerprint.
	Deterministic bool `json:"deterministic"`
	// MatchesLive is true when the projection equals the engine's current
	// graph.
	MatchesLive bool `json:"matches_live"`
}

// Replay projects the full event log twice onto fresh bootstrapped graphs
// and compares the results with each other and with the live graph.
//
// Projection is the only path from events to state, so a live graph that
// differs from its own log means the log is missing events or a snapshot
// was taken from a different history.
func (e *Engine) Replay(ctx context.Context) (ReplayReport, error) {
	events, err := e.log.GetEvents(ctx, e.graphID, event.Range{})
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay %s: read events: %w", e.graphID, err)
	}

	first, err := e.project(events)
	if err != nil {
		return ReplayReport{}, err
	}
	second, err := e.project(events)
	if err != nil {
		return ReplayReport{}, err
	}

	fp1, err := graph.Fingerprint(first)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay %s: %w", e.graphID, err)
	}
	fp2, err := graph.Fingerprint(second)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay %s: %w", e.graphID, err)
	}
	live, err := graph.Fingerprint(e.Graph())
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay %s: %w", e.graphID, err)
	}

	report := ReplayReport{
		Events:        len(events),
		Nodes:         first.NodeCount(),
		Edges:         first.EdgeCount(),
		Fingerprint:   fp1,
		Deterministic: fp1 == fp2,
		MatchesLive:   fp1 == live,
	}
	e.logger.Info("replay finished",
		"graph", e.graphID,
		"events", report.Events,
		"deterministic", report.Deterministic,
		"matches_live", report.MatchesLive,
	)
	return report, nil
}

func (e *Engine) project(events []event.Event) (*graph.Graph, error) {
	g, err := graph.ProjectGraph(events, schema.Bootstrap(graph.New(e.graphID, "")))
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", e.graphID, err)
	}
	return g, nil
}
