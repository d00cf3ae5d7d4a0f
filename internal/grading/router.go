package grading

import (
	"context"

	"github.com/m11312045/pneumatic-app/internal/models"
)

// RouterGrader sends COPY and TEXT answers to Basic and ADVANCED answers to
// Advanced.
type RouterGrader struct {
	Basic    Grader
	Advanced Grader
}

func NewRouterGrader(basic, advanced Grader) *RouterGrader {
	return &RouterGrader{Basic: basic, Advanced: advanced}
}

func (r *RouterGrader) Name() string {
	return "router(" + r.Basic.Name() + "," + r.Advanced.Name() + ")"
}

func (r *RouterGrader) Grade(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	if req.Variant == models.VariantAdvanced {
		return r.Advanced.Grade(ctx, req)
	}
	return r.Basic.Grade(ctx, req)
}
