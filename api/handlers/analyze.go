// Package handlers provides HTTP API request handlers.
package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/collab-whiteboard/backend/internal/genai"
	"github.com/collab-whiteboard/backend/internal/model"
)

// AnalyzeHandler is the stateless bridge from an analysis request to the
// external model API. It holds no room state.
type AnalyzeHandler struct {
	analyzer genai.Analyzer
}

// NewAnalyzeHandler creates an AnalyzeHandler over the given analyzer.
func NewAnalyzeHandler(analyzer genai.Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
	}
}

// AnalyzeRequest represents the request body for image analysis.
type AnalyzeRequest struct {
	Image string `json:"image"`
}

// AnalyzeResponse carries the model's generated text.
type AnalyzeResponse struct {
	Result string `json:"result"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// stripDataURI drops the "data:image/png;base64," style prefix from an
// encoded image, leaving the raw base64 body.
func stripDataURI(image string) string {
	if idx := strings.LastIndex(image, ";base64,"); idx >= 0 {
		return image[idx+len(";base64,"):]
	}
	return image
}

// Analyze handles POST /analyze - forwards the canvas image to the model
// and returns its interpretation verbatim. No retries, no caching.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: model.ErrImageRequired.Error()})
		return
	}

	result, err := h.analyzer.AnalyzeImage(c.Request.Context(), stripDataURI(req.Image))
	if err != nil {
		log.Printf("[Analyze] Model API error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Error processing image with Gemini API",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{Result: result})
}

// RegisterRoutes registers the analysis route on the router.
func (h *AnalyzeHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/analyze", h.Analyze)
}
