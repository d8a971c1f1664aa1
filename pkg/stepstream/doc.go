// Package stepstream incrementally classifies a model's output stream
// into labeled content segments based on XML-style delimiters.
//
// This package wraps the cross-chunk scanning state machine behind a
// small synchronous API: feed arbitrarily-sized text fragments to a
// Parser as they arrive and receive ordered Message values separating,
// for example, a reasoning trace from the final answer.
package stepstream
