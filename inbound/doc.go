// Package inbound routes decoded webhook events to their handlers.
package inbound
