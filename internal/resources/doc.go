// Package resources provides MCP resources that give voice agents the
// context they need before booking: the scheduling defaults and the current
// time in the default time zone.
package resources
