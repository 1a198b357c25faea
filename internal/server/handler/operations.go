package handler

import (
	"net/http"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
)

// OperationSource exposes the registry and the process capabilities.
type OperationSource interface {
	Catalog() *catalog.Catalog
	Capabilities() catalog.Capabilities
}

// OperationHandler lists the operation catalog.
type OperationHandler struct {
	src OperationSource
}

// NewOperationHandler creates an OperationHandler.
func NewOperationHandler(src OperationSource) *OperationHandler {
	return &OperationHandler{src: src}
}

type operationView struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Kind        string         `json:"kind"`
	Triggers    []string       `json:"triggers"`
	Examples    []string       `json:"examples,omitempty"`
	Requires    []string       `json:"requires,omitempty"`
	Eligible    bool           `json:"eligible"`
	Schema      map[string]any `json:"schema"`
}

// List returns every operation in catalog order with its parameter schema
// and whether this process can run it.
// GET /api/operations
func (h *OperationHandler) List(w http.ResponseWriter, r *http.Request) {
	caps := h.src.Capabilities()
	ops := h.src.Catalog().List()

	out := make([]operationView, 0, len(ops))
	for _, op := range ops {
		req := make([]string, 0, len(op.Requires))
		for _, c := range op.Requires {
			req = append(req, string(c))
		}
		out = append(out, operationView{
			ID:          op.ID,
			Description: op.Description,
			Kind:        op.Kind.String(),
			Triggers:    op.Triggers,
			Examples:    op.Examples,
			Requires:    req,
			Eligible:    op.Validate(caps),
			Schema:      op.JSONSchema(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": out})
}
