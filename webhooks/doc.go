// Package webhooks verifies webhook deliveries and hands their decoded
// events to an event dispatcher.
//
// A delivery is answered only after every event has been processed. Event
// level failures never change the response code; only signature and body
// failures do.
package webhooks
