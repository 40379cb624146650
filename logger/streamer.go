package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logEntry represents a single stage event shipped to the ingest endpoint.
type logEntry struct {
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	TraceID    string         `json:"traceID"` // to track the flow of one pipeline run
	Stage      string         `json:"stage"`
	Attributes map[string]any `json:"attributes"`
}

// StageStreamer streams pipeline stage events to a local file in
// development or to an HTTP log ingest endpoint in production, while also
// logging to Zap for console visibility.
type StageStreamer struct {
	sourceToken string
	environment string
	uploadURL   string
	logger      *zap.Logger
	client      *http.Client
	fileWriter  io.Writer
	fileMu      sync.Mutex
}

// NewStageStreamer creates a new StageStreamer instance.
func NewStageStreamer(sourceToken, environment, uploadURL string, logger *zap.Logger) *StageStreamer {
	streamer := &StageStreamer{
		sourceToken: sourceToken,
		environment: environment,
		uploadURL:   uploadURL,
		logger:      logger,
	}

	if environment == "development" {
		f, err := os.OpenFile("app.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logger.Error("Failed to open log file", zap.Error(err))
			streamer.fileWriter = os.Stderr
		} else {
			streamer.fileWriter = f
		}
	}

	if environment == "production" {
		streamer.client = &http.Client{Timeout: 10 * time.Second}
	}

	return streamer
}

// Log streams one stage event. Events without a trace ID are dropped.
func (s *StageStreamer) Log(level zapcore.Level, traceID, stage, message string, attributes map[string]any) {
	if traceID == "" {
		return
	}

	var levelStr string
	switch level {
	case zapcore.ErrorLevel:
		levelStr = "ERROR"
	case zapcore.WarnLevel:
		levelStr = "WARN"
	case zapcore.InfoLevel:
		levelStr = "INFO"
	case zapcore.DebugLevel:
		levelStr = "DEBUG"
	default:
		levelStr = "UNKNOWN"
	}

	if attributes == nil {
		attributes = make(map[string]any)
	}

	entry := logEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      levelStr,
		Message:    message,
		TraceID:    traceID,
		Stage:      stage,
		Attributes: attributes,
	}

	body, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		s.logger.Error("Failed to marshal log", zap.Error(marshalErr))
		return
	}

	switch {
	case s.fileWriter != nil:
		s.fileMu.Lock()
		_, writeErr := s.fileWriter.Write(append(body, '\n'))
		s.fileMu.Unlock()
		if writeErr != nil {
			s.logger.Error("Failed to write log to file", zap.Error(writeErr))
		}
	case s.client != nil && s.uploadURL != "":
		req, err := http.NewRequest("POST", s.uploadURL, bytes.NewReader(body))
		if err != nil {
			s.logger.Error("Failed to create HTTP request", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.sourceToken)

		// Ship asynchronously so slow ingest never stalls a pipeline run.
		go func() {
			resp, err := s.client.Do(req)
			if err != nil {
				s.logger.Error("Failed to ship log entry", zap.Error(err))
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode >= http.StatusMultipleChoices {
				s.logger.Error("Unexpected response from log ingest", zap.String("status", resp.Status))
			}
		}()
	}

	s.logger.Log(level, message, zap.String("traceID", traceID), zap.String("stage", stage), zap.Any("attributes", attributes))
}
