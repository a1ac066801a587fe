// Package tokencache keeps short-lived Google access tokens between requests
// so that a burst of tool calls does not refresh the same credential each time.
//
// Two backends exist: Memory for a single process and Valkey for replicas that
// share a valkey or Redis server. Caching is opt-in; without it every request
// performs its own refresh.
package tokencache
