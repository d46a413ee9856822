package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ironsheep/image-enhancer/internal/enhance"
	"github.com/ironsheep/image-enhancer/internal/model"
	"github.com/sirupsen/logrus"
)

// PathHeader reports which pipeline produced an /enhance response.
const PathHeader = "X-Enhancement-Path"

// ValidationError is a malformed request; it maps to 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// EnhanceRequest is the POST /enhance body.
type EnhanceRequest struct {
	Input *EnhanceInput `json:"input"`
}

// EnhanceInput carries the job fields.
type EnhanceInput struct {
	Image string `json:"image"`
	Task  string `json:"task,omitempty"`
}

// EnhanceResponse is the POST /enhance success body.
type EnhanceResponse struct {
	Image string `json:"image"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResponse is the GET /status body.
type StatusResponse struct {
	Status string         `json:"status"`
	Path   enhance.Path   `json:"path"`
	Model  *model.Status  `json:"model,omitempty"`
	Tasks  []enhance.Task `json:"tasks"`

	// Weights maps each task to its checkpoint name.
	Weights map[enhance.Task]string `json:"weights"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleEnhance(c *gin.Context) {
	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	if err := req.validate(); err != nil {
		s.respondError(c, err)
		return
	}

	task := enhance.ParseTask(req.Input.Task)
	res, err := s.enhancer.Enhance(c.Request.Context(), req.Input.Image, task)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"task":       task.String(),
		"path":       res.Path.String(),
		"width":      res.Width,
		"height":     res.Height,
		"elapsed":    res.Elapsed,
	}).Info("Image enhanced")

	c.Header(PathHeader, res.Path.String())
	c.JSON(http.StatusOK, EnhanceResponse{Image: res.Image})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Message: "AI Image Enhancer Backend",
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := StatusResponse{
		Status: "operational",
		Path:   enhance.PathFallback,
		Tasks:  enhance.KnownTasks(),
	}
	resp.Weights = make(map[enhance.Task]string, len(resp.Tasks))
	for _, task := range resp.Tasks {
		resp.Weights[task] = task.Weights()
	}
	if s.models != nil {
		status := s.models.Status()
		resp.Model = &status
		if status.Loaded {
			resp.Path = enhance.PathNeural
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (r *EnhanceRequest) validate() error {
	if r.Input == nil {
		return &ValidationError{Message: "Missing input data"}
	}
	if r.Input.Image == "" {
		return &ValidationError{Message: "No image provided in the job input."}
	}
	return nil
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &ValidationError{Message: "Request body too large"}
	}
	return &ValidationError{Message: "Invalid JSON body"}
}

// respondError writes {"error": msg}: 400 for validation failures, 500 for
// everything else.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var verr *ValidationError
	if errors.As(err, &verr) {
		status = http.StatusBadRequest
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorBody{Error: err.Error()})
}
