package catalog

// JSONSchema describes the operation parameters as a JSON Schema object.
// Amounts are strings so that 18-decimal values survive JSON numbers.
func (o Operation) JSONSchema() map[string]any {
	props := make(map[string]any, len(o.Schema))
	var required []string
	for _, f := range o.Schema {
		p := map[string]any{"description": f.describe()}
		switch f.Type {
		case Integer:
			p["type"] = "integer"
			if f.Min != nil {
				p["minimum"] = *f.Min
			}
			if f.Max != nil {
				p["maximum"] = *f.Max
			}
		case Bool:
			p["type"] = "boolean"
		case Outcome:
			p["type"] = "string"
			p["enum"] = []string{"YES", "NO"}
		case StringList:
			p["type"] = "array"
			p["items"] = map[string]any{"type": "string"}
		case Address:
			p["type"] = "string"
			p["pattern"] = "^0x[0-9a-fA-F]{40}$"
		case Bytes32:
			p["type"] = "string"
			p["pattern"] = "^0x[0-9a-fA-F]{64}$"
		default:
			p["type"] = "string"
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func (f Field) describe() string {
	if f.Description != "" {
		return f.Description + " (" + f.ExpectedFormat() + ")"
	}
	return f.ExpectedFormat()
}
