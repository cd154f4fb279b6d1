// Package providers groups the external backends the planner talks to:
// the LINE Messaging API, the OpenAI and Gemini completion APIs and the
// Google Calendar and Tasks APIs. Scripted fakes for tests live in devkit.
package providers
