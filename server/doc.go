// Package server exposes the webhook, liveness and metrics endpoints over gin.
package server
