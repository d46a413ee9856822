package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ironsheep/image-enhancer/internal/replicate"
)

// PredictionRequest is the POST /api/replicate/predictions body.
type PredictionRequest struct {
	DeploymentID string          `json:"deploymentId"`
	Input        json.RawMessage `json:"input"`
}

type proxyErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleCreatePrediction(c *gin.Context) {
	if !s.proxyEnabled(c) {
		return
	}
	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	input := bytes.TrimSpace(req.Input)
	if strings.TrimSpace(req.DeploymentID) == "" || len(input) == 0 || bytes.Equal(input, []byte("null")) {
		s.respondError(c, &ValidationError{Message: "Missing deploymentId or input"})
		return
	}

	resp, err := s.replicate.CreatePrediction(c.Request.Context(), req.DeploymentID, input)
	s.forward(c, resp, err)
}

func (s *Server) handleGetPrediction(c *gin.Context) {
	if !s.proxyEnabled(c) {
		return
	}
	resp, err := s.replicate.GetPrediction(c.Request.Context(), c.Param("id"))
	s.forward(c, resp, err)
}

func (s *Server) handleGetDeployment(c *gin.Context) {
	if !s.proxyEnabled(c) {
		return
	}
	id := c.Param("owner") + "/" + c.Param("name")
	resp, err := s.replicate.GetDeployment(c.Request.Context(), id)
	s.forward(c, resp, err)
}

func (s *Server) proxyEnabled(c *gin.Context) bool {
	if s.replicate != nil {
		return true
	}
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Error: "Replicate proxy is not configured"})
	return false
}

// forward relays the upstream status and JSON body unchanged.
func (s *Server) forward(c *gin.Context, resp *replicate.Response, err error) {
	if errors.Is(err, replicate.ErrInvalidID) {
		s.respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	if err != nil {
		_ = c.Error(err)
		s.log.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("Replicate proxy error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, proxyErrorBody{Error: "Proxy error", Message: err.Error()})
		return
	}
	c.Data(resp.StatusCode, "application/json; charset=utf-8", resp.Body)
}
