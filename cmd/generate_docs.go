package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/voicecal/internal/scheduler"
	"github.com/teemow/voicecal/internal/server"
	"github.com/teemow/voicecal/internal/tools/calendar_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate tool documentation",
		Long: `Generate markdown documentation for the scheduling tools.
The registered MCP tools are introspected, so the reference always matches
the arguments the server actually accepts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerateDocs(cmd.OutOrStdout(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(out io.Writer, outputFile string) error {
	tools, err := registeredTools()
	if err != nil {
		return err
	}

	markdown := generateToolsMarkdown(tools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
		return nil
	}

	_, err = io.WriteString(out, markdown)
	return err
}

// registeredTools registers the tools against a scheduler with no
// credentials; only the definitions are read.
func registeredTools() ([]mcp.Tool, error) {
	sc := server.NewServerContext(context.Background(), scheduler.New(nil, nil, scheduler.Options{}), logger)
	defer func() {
		_ = sc.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("voicecal", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register calendar tools: %w", err)
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# Tools Reference\n\n")
	sb.WriteString("This document lists the tools voicecal exposes to voice agents and MCP clients.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	toolsByCategory := groupToolsByCategory(tools)

	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	sb.WriteString("- [HTTP Endpoints](#http-endpoints)\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## HTTP Endpoints\n\n")
	sb.WriteString("The same tools are reachable without an MCP client:\n\n")
	sb.WriteString("- `POST /create-event`: the create arguments as a JSON object. Errors use HTTP status codes.\n")
	sb.WriteString("- `POST /tool-calls`: a voice platform envelope (`message.toolCallList`). Always answers 200 with one result per call.\n")
	sb.WriteString("- `/mcp`: MCP streamable HTTP.\n\n")
	sb.WriteString("Failures carry `ok: false`, an `error` kind (`invalid_request`, `time_parse`, `auth`, `calendar_api`, `network`) and a `message`.\n\n")

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func getCategoryFromToolName(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	switch prefix {
	case "calendar":
		return "Calendar Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]any)
			if !ok {
				continue
			}

			requiredStr := "optional"
			if contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			propType := getPropertyType(propMap)
			sb.WriteString(fmt.Sprintf("- `%s` (%s, %s): ", name, propType, requiredStr))

			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", propType))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
