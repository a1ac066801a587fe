// Package calendar_tools exposes event booking to voice agents.
//
// The same operations are served over three transports:
//   - MCP tools calendar_create_event and calendar_preview_event
//   - POST /create-event, a plain JSON webhook
//   - POST /tool-calls, the voice platform tool-call envelope
//
// Every transport decodes the same argument shape, runs the request through
// the scheduler and reports failures as error descriptors.
package calendar_tools
