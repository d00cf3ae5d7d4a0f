package pkg

import (
	"log/slog"

	"github.com/m11312045/pneumatic-app/internal/config"
	"github.com/m11312045/pneumatic-app/internal/grading"
)

// NewGrader builds the answer grader. ADVANCED questions always go to the
// LLM; with the detector provider COPY and TEXT go to the detector.
func NewGrader(cfg config.GraderConfig, logger *slog.Logger) (grading.Grader, error) {
	model, err := grading.NewOpenAICompatibleModel(cfg.APIKey, cfg.Model, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	llm := grading.NewLLMGrader(model, grading.LLMConfig{
		Provider: "GEMINI",
		Model:    cfg.Model,
	}, logger)

	if cfg.Provider != "detector" {
		logger.Info("Using llm grader", "model", cfg.Model)
		return llm, nil
	}

	detector := grading.NewDetectorGrader(nil, grading.DetectorConfig{
		Endpoint: cfg.DetectorURL,
		APIKey:   cfg.DetectorKey,
		Model:    cfg.DetectorModel,
	}, logger)
	logger.Info("Using detector grader for basic questions",
		"detector_url", cfg.DetectorURL,
		"model", cfg.Model)
	return grading.NewRouterGrader(detector, llm), nil
}
