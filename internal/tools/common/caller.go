package common

import "strings"

// CallerFromArgs extracts the caller's spoken name from tool arguments.
// It returns "" when the argument is missing or not a string.
func CallerFromArgs(args map[string]any) string {
	if name, ok := args["name"].(string); ok {
		return strings.TrimSpace(name)
	}
	return ""
}
