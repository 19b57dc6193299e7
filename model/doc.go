// Package model defines the provider agnostic text generation interface used
// by the research workers, plus a MockModel for tests and examples.
//
// Adapters for concrete providers live in sub packages:
//
//   - model/openai    OpenAI Chat Completions
//   - model/anthropic Anthropic Messages
//
// Generate returns a response channel and an error channel in the same way
// for every provider; Collect drains both and returns the final text.
package model
