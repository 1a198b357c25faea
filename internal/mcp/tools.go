package mcpserver

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
)

// ChatTool takes a free-form message and lets intent resolution pick the
// operation.
const ChatTool = "predict_chat"

// Tool definitions for the prediction-market MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var toolChat = mcp.NewTool(ChatTool,
	mcp.WithDescription(
		"Send a natural-language request about prediction markets, such as "+
			"'Buy YES in market 0x... with 100 MODE' or 'list markets'. "+
			"The request is matched to a market operation and executed."),
	mcp.WithString("message",
		mcp.Required(),
		mcp.Description("The user's request in plain language")),
)

// toolName is the MCP name for a catalog operation.
func toolName(op catalog.Operation) string {
	return strings.ToLower(op.ID)
}

// toolFor builds an MCP tool from an operation's parameter schema.
func toolFor(op catalog.Operation) mcp.Tool {
	desc := op.Description
	if op.Kind == catalog.Write {
		desc += " Submits an on-chain transaction from the configured signer."
	}
	opts := []mcp.ToolOption{mcp.WithDescription(desc)}
	for _, f := range op.Schema {
		opts = append(opts, fieldOption(f))
	}
	return mcp.NewTool(toolName(op), opts...)
}

func fieldOption(f catalog.Field) mcp.ToolOption {
	props := []mcp.PropertyOption{mcp.Description(fieldDescription(f))}
	if f.Required {
		props = append(props, mcp.Required())
	}

	switch f.Type {
	case catalog.Integer:
		if f.Min != nil {
			props = append(props, mcp.Min(float64(*f.Min)))
		}
		if f.Max != nil {
			props = append(props, mcp.Max(float64(*f.Max)))
		}
		return mcp.WithNumber(f.Name, props...)
	case catalog.Bool:
		return mcp.WithBoolean(f.Name, props...)
	case catalog.StringList:
		props = append(props, mcp.Items(map[string]any{"type": "string"}))
		return mcp.WithArray(f.Name, props...)
	case catalog.Outcome:
		props = append(props, mcp.Enum("YES", "NO"))
	case catalog.Address:
		props = append(props, mcp.Pattern("^0x[0-9a-fA-F]{40}$"))
	case catalog.Bytes32:
		props = append(props, mcp.Pattern("^0x[0-9a-fA-F]{64}$"))
	}
	// Decimals stay strings so 18-digit amounts survive JSON numbers.
	return mcp.WithString(f.Name, props...)
}

func fieldDescription(f catalog.Field) string {
	d := f.Description
	if d == "" {
		d = f.Name
	}
	return fmt.Sprintf("%s (%s)", d, f.ExpectedFormat())
}
