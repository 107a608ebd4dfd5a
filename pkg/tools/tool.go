// Package tools defines the local tool contract and the dispatcher that
// resolves remote tool-call requests to registered handlers.
package tools

import (
	"context"
	"time"
)

type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
}

type ToolParameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

type ToolResult struct {
	Success       bool          `json:"success"`
	Content       string        `json:"content,omitempty"`
	Error         string        `json:"error,omitempty"`
	ToolName      string        `json:"tool_name"`
	ExecutionTime time.Duration `json:"execution_time,omitempty"`
}

// Tool is a locally executable capability advertised to the remote run.
type Tool interface {
	GetInfo() ToolInfo

	Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error)

	GetName() string

	GetDescription() string
}

// ParameterSchema converts a tool's declared parameters into a JSON-schema
// object suitable for advertising the tool to the remote run.
func ParameterSchema(info ToolInfo) map[string]interface{} {
	properties := make(map[string]interface{}, len(info.Parameters))
	var required []string

	for _, param := range info.Parameters {
		prop := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if len(param.Enum) > 0 {
			prop["enum"] = param.Enum
		}
		properties[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
