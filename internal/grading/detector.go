package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/samber/lo"
)

const detectorProvider = "YOLO"

// DetectorConfig configures a DetectorGrader.
type DetectorConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	ImageSize  int
	Confidence float64
	IoU        float64
}

type detection struct {
	Class      int     `json:"class"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type detectorResponse struct {
	Images []struct {
		Results []detection `json:"results"`
	} `json:"images"`
}

// DetectorGrader grades COPY and TEXT answers with an object detector and
// label containment against the question's expected components.
type DetectorGrader struct {
	client *http.Client
	config DetectorConfig
	logger *slog.Logger
}

func NewDetectorGrader(client *http.Client, config DetectorConfig, logger *slog.Logger) *DetectorGrader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if config.ImageSize == 0 {
		config.ImageSize = 640
	}
	if config.Confidence == 0 {
		config.Confidence = 0.25
	}
	if config.IoU == 0 {
		config.IoU = 0.45
	}
	return &DetectorGrader{client: client, config: config, logger: logger}
}

func (d *DetectorGrader) Name() string {
	return "detector"
}

func (d *DetectorGrader) Grade(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	if !req.Variant.IsBasic() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariant, req.Variant)
	}

	raw, detections, err := d.detect(ctx, req.AnswerImageURL)
	if err != nil {
		return nil, err
	}

	names := lo.Map(detections, func(item detection, _ int) string {
		return CanonicalLabel(item.Name)
	})
	best := lo.MaxBy(detections, func(a, b detection) bool {
		return a.Confidence > b.Confidence
	})

	result := &models.AnalysisResult{
		IsCorrect:          ContainsAll(names, req.ExpectedLabels, req.ExpectedCounts),
		DetectedComponents: lo.Uniq(names),
		Confidence:         best.Confidence,
		Provider:           detectorProvider,
		Model:              d.config.Model,
		Raw:                raw,
	}
	if !result.IsCorrect {
		missing := lo.Filter(req.ExpectedLabels, func(label string, _ int) bool {
			return !lo.Contains(result.DetectedComponents, CanonicalLabel(label))
		})
		if len(missing) > 0 {
			result.Advice = fmt.Sprintf("Missing components: %v", missing)
		}
	}

	d.logger.Debug("Detector graded answer",
		"detections", len(detections),
		"is_correct", result.IsCorrect)
	return result, nil
}

func (d *DetectorGrader) detect(ctx context.Context, imageURL string) (json.RawMessage, []detection, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	fields := map[string]string{
		"model": d.config.Model,
		"url":   imageURL,
		"imgsz": fmt.Sprint(d.config.ImageSize),
		"conf":  fmt.Sprint(d.config.Confidence),
		"iou":   fmt.Sprint(d.config.IoU),
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := form.WriteField(key, value); err != nil {
			return nil, nil, fmt.Errorf("failed to build detector request: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to build detector request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.Endpoint, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create detector request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	if d.config.APIKey != "" {
		httpReq.Header.Set("x-api-key", d.config.APIKey)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read detector response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var decoded detectorResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, nil, fmt.Errorf("malformed detector payload: %w", err)
	}
	if len(decoded.Images) == 0 {
		return payload, []detection{}, nil
	}
	return payload, decoded.Images[0].Results, nil
}
