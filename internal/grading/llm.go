package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const reportToolName = "report_grade"

const systemPrompt = `You grade hand-drawn pneumatic circuit diagrams photographed by students.
Always answer by calling report_grade exactly once.

Question types:
- COPY: the student copied the reference diagram. Judge whether the drawing reproduces the same components and connections.
- TEXT: the student drew a circuit from a written description. Compare it with the reference diagram when one is given.
- ADVANCED: the student designed a circuit for an open-ended task. Grade it against the rubric.
  isCorrect is the main design; bonusCorrect is the extension task described in the rubric.
  Extract the control logic as logicEquation when one is visible.

List every pneumatic component you can identify in detectedComponents using standard names
(for example "Double-acting cylinder", "52-way valve", "Shuttle valve").
Keep advice to two short sentences addressed to the student.`

// gradeReport is the tool schema the model fills in.
type gradeReport struct {
	IsCorrect          bool     `json:"isCorrect" jsonschema:"required,description=Whether the drawing answers the question correctly"`
	BonusCorrect       bool     `json:"bonusCorrect,omitempty" jsonschema:"description=ADVANCED only: whether the bonus requirement is met"`
	LogicEquation      string   `json:"logicEquation,omitempty" jsonschema:"description=ADVANCED only: the control logic expression"`
	Advice             string   `json:"advice" jsonschema:"required,description=Short advice for the student"`
	DetectedComponents []string `json:"detectedComponents" jsonschema:"required,description=Pneumatic components identified in the drawing"`
}

// LLMConfig configures an LLMGrader.
type LLMConfig struct {
	Provider    string
	Model       string
	Temperature float64
}

// LLMGrader grades answers with a vision-capable chat model through a forced
// tool call.
type LLMGrader struct {
	llm    llms.Model
	config LLMConfig
	tools  []llms.Tool
	logger *slog.Logger
}

func NewLLMGrader(llm llms.Model, config LLMConfig, logger *slog.Logger) *LLMGrader {
	config.Provider = NormalizeProvider(config.Provider, "")
	return &LLMGrader{
		llm:    llm,
		config: config,
		tools:  []llms.Tool{reportTool()},
		logger: logger,
	}
}

// NewOpenAICompatibleModel builds a chat model for any OpenAI-compatible
// endpoint, including Gemini's.
func NewOpenAICompatibleModel(apiKey, model, baseURL string) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return llm, nil
}

func (g *LLMGrader) Name() string {
	return "llm"
}

func (g *LLMGrader) Grade(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	if !req.Variant.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariant, req.Variant)
	}

	g.logger.Debug("Requesting llm grade",
		"variant", req.Variant,
		"model", g.config.Model,
		"answer_url", req.AnswerImageURL)

	resp, err := g.llm.GenerateContent(ctx, g.buildMessages(req),
		llms.WithTools(g.tools),
		llms.WithToolChoice("required"),
		llms.WithTemperature(g.config.Temperature))
	if err != nil {
		return nil, fmt.Errorf("failed to generate grade: %w", err)
	}

	raw, err := extractReport(resp)
	if err != nil {
		return nil, err
	}

	result, err := NormalizeJSON(raw, g.config.Provider, g.config.Model)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (g *LLMGrader) buildMessages(req Request) []llms.MessageContent {
	var b strings.Builder
	fmt.Fprintf(&b, "Question type: %s\n", req.Variant)
	fmt.Fprintf(&b, "Question: %s\n", req.PromptText)
	if req.Rubric != "" {
		fmt.Fprintf(&b, "Rubric (best answer):\n%s\n", req.Rubric)
	}
	if len(req.ExpectedLabels) > 0 {
		fmt.Fprintf(&b, "Expected components: %s\n", strings.Join(req.ExpectedLabels, ", "))
	}
	b.WriteString("The first image is the student's answer.")
	if req.ReferenceImageURL != "" {
		b.WriteString(" The second image is the reference diagram.")
	}

	parts := []llms.ContentPart{
		llms.TextPart(b.String()),
		llms.ImageURLPart(req.AnswerImageURL),
	}
	if req.ReferenceImageURL != "" {
		parts = append(parts, llms.ImageURLPart(req.ReferenceImageURL))
	}

	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}
}

// extractReport prefers the tool call and falls back to JSON in the message
// body for models that ignore tool_choice.
func extractReport(resp *llms.ContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	choice := resp.Choices[0]
	for _, call := range choice.ToolCalls {
		if call.FunctionCall != nil && call.FunctionCall.Name == reportToolName {
			return []byte(call.FunctionCall.Arguments), nil
		}
	}

	content := strings.TrimSpace(choice.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyResponse
	}
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("grader returned non-JSON content")
	}
	return []byte(content), nil
}

func reportTool() llms.Tool {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&gradeReport{})
	schema.Version = ""
	schema.ID = ""

	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        reportToolName,
			Description: "Report the grading result for the student's drawing",
			Parameters:  schema,
		},
	}
}
