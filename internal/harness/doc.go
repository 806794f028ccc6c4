// Package harness runs YAML conformance scenarios against the engine.
//
// # Scenario Format
//
//	name: cascade_delete
//	description: "Deleting a node removes every edge that touches it"
//	types_dir: ../types          # or types: <inline CUE>
//	steps:
//	  - {op: add_node, id: a, type: person, properties: {name: Alice}}
//	  - {op: add_node, id: b, type: person, properties: {name: Bob}}
//	  - {op: add_edge, id: ab, type: knows, source: a, target: b}
//	  - {op: remove_node, id: a}
//	  - {op: update_node, id: a, properties: {name: A}, expect_error: NOT_FOUND}
//	assertions:
//	  - {type: node_absent, node: a}
//	  - {type: edge_count, count: 1, at_step: 3}
//	  - type: event_order
//	    events: ["edge_created:ab", "node_deleted:a", "edge_deleted:ab"]
//
// Steps are add_node, update_node, remove_node, add_edge, update_edge,
// remove_edge, insert_child, move_child and save_query. In update steps a
// null property value removes the property.
//
// # Assertion Types
//
//   - node_exists, node_absent: the node is (not) in the graph
//   - edge_count: number of edges, optionally of one edge_type
//   - property_equals: a node property equals value; null matches unset
//   - query_count: a stored query returns count results for params
//   - child_order: the ordered children of parent
//   - event_order: type:subject labels appear in the trace in order
//
// Graph assertions accept at_step to inspect the graph as it was after
// that step, rebuilt from the event log.
//
// # Deterministic Testing
//
// Each run uses a fresh in-memory event log, a testutil.DeterministicClock
// and testutil.SequentialUUIDv7 ids, so repeated runs persist identical
// events. RunWithGolden compares the trace with a goldie golden file under
// testdata/golden.
package harness
