package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"analystagent/model"
	"analystagent/pkg"
)

var ErrQuestionTooLong = errors.New("question exceeds maximum length")

// Analyzer runs the full three-stage pipeline for one question.
type Analyzer interface {
	Run(ctx context.Context, question string) (json.RawMessage, error)
}

type AnalysisService struct {
	pipeline       Analyzer
	logger         *zap.Logger
	maxQuestionLen int
}

func NewAnalysisService(pipeline Analyzer, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		pipeline:       pipeline,
		logger:         logger,
		maxQuestionLen: 10000,
	}
}

// Register wires the analysis endpoints onto the engine.
func Register(r *gin.Engine, s *AnalysisService, limiter *pkg.RateLimiter) {
	r.GET("/health", s.HandleHealth)
	r.POST("/api/", limiter.Limit(), s.HandleAnalyze)
}

// HandleAnalyze accepts a file upload whose decoded text body is a
// free-form analysis question and responds with the final JSON array, or a
// JSON error object and status 500 when any stage fails.
func (s *AnalysisService) HandleAnalyze(c *gin.Context) {
	fileHeader, err := c.FormFile("question")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "question file is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "failed to open uploaded file: " + err.Error()})
		return
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "failed to read uploaded file: " + err.Error()})
		return
	}

	question := strings.TrimSpace(string(raw))
	if question == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "question is empty"})
		return
	}
	if len(question) > s.maxQuestionLen {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: ErrQuestionTooLong.Error()})
		return
	}

	answer, err := s.pipeline.Run(c.Request.Context(), question)
	if err != nil {
		s.logger.Error("Analysis pipeline failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", answer)
}

func (s *AnalysisService) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
