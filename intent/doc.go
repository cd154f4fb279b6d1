// Package intent turns a free-text chat message into a core.Intent by asking
// a completion provider for a strict JSON object and validating the reply.
package intent
