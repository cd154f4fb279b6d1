// Package transport provides the REST adapter used by the LINE and OpenAI
// clients.
package transport
