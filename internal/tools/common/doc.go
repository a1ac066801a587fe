// Package common provides the instrumentation shared by every tool
// transport. Track wraps one invocation in a span, metrics and an audit
// record; InstrumentedToolHandler applies it to MCP tools.
package common
