// Package notify turns pipeline outcomes into LINE text messages.
package notify
