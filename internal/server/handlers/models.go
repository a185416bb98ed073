package handlers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/simplifygenai/chatrelay/internal/metrics"
	"github.com/simplifygenai/chatrelay/internal/relay/openai"
)

const modelsRoute = "/api/models"

// ModelsHandler lists the chat-capable models offered by the upstream
// provider, filtered to the GPT family the frontend can actually use.
type ModelsHandler struct {
	client *openai.Client
}

// NewModelsHandler creates a models listing handler.
func NewModelsHandler(client *openai.Client) *ModelsHandler {
	return &ModelsHandler{client: client}
}

type modelsResponse struct {
	Data []openai.Model `json:"data"`
}

// Handle fetches, filters, and sorts the upstream model list.
func (h *ModelsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	models, err := h.client.ListModels(r.Context())
	if err != nil {
		respondWithError(w, r, upstreamFailureEnvelope(err, "model listing"))
		return
	}

	chatModels := make([]openai.Model, 0, len(models))
	for _, model := range models {
		if strings.Contains(model.ID, "gpt") {
			chatModels = append(chatModels, model)
		}
	}
	sort.Slice(chatModels, func(i, j int) bool {
		return chatModels[i].ID < chatModels[j].ID
	})

	respondJSON(w, http.StatusOK, modelsResponse{Data: chatModels})
	metrics.RecordRelay(modelsRoute, http.StatusOK, time.Since(start))
}
