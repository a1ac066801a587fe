// Package cmd implements the command-line interface for voicecal.
//
// This package provides the following commands:
//   - serve: Start the HTTP or stdio server that books events for voice agents
//   - create: Book a single event from the command line, or preview it with --dry-run
//   - auth: Run the OAuth consent flow once to mint a refresh token
//   - generate-docs: Generate markdown documentation for the tools
//   - version: Display version information
package cmd
