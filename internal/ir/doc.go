// Package ir provides the foundational types of the graph engine.
//
// This package contains identifiers, the property value union, the error
// taxonomy, canonical JSON encoding and UUIDv7 generation. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed interface; only this package implements it
//   - Lists are flat: a List never contains another List
//   - All JSON tags use snake_case
//   - Event and generated node ids are UUIDv7 strings, so lexicographic
//     order matches creation order within one writer
package ir
