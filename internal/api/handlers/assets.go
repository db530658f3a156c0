package handlers

import (
	"errors"
	"net/http"

	"github.com/edulab-ai/progresscluster/internal/service"
)

type AssetsHandler struct {
	assigner *service.Assigner
}

func NewAssetsHandler(assigner *service.Assigner) *AssetsHandler {
	return &AssetsHandler{assigner: assigner}
}

type assetsResponse struct {
	Version      string `json:"version"`
	CreatedAt    string `json:"created_at"`
	SemanticMode string `json:"semantic_mode"`
	EmbedModel   string `json:"embed_model,omitempty"`
	HasCenters   bool   `json:"has_centers"`
	HasPCA       bool   `json:"has_pca"`
	Clusters     int    `json:"clusters"`
}

// Info describes the served bundle so operators can audit what the
// service is classifying against.
func (h *AssetsHandler) Info(w http.ResponseWriter, r *http.Request) {
	model, err := h.assigner.Model()
	if err != nil {
		if errors.Is(err, service.ErrNoBundle) {
			writeError(w, http.StatusServiceUnavailable, "no asset bundle available")
			return
		}
		writeError(w, http.StatusInternalServerError, "loading assets failed")
		return
	}

	resp := assetsResponse{
		Version:      model.Manifest.Version,
		CreatedAt:    model.Manifest.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		SemanticMode: model.Manifest.SemanticMode,
		EmbedModel:   model.Manifest.EmbedModel,
		HasCenters:   model.Centers != nil,
		HasPCA:       model.PCA != nil,
	}
	if model.Centers != nil {
		resp.Clusters = len(model.Centers.Vectors)
	}
	writeJSON(w, http.StatusOK, resp)
}
