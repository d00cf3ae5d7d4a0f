package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/samber/lo"
)

// Pool names used in shortage reports and metrics.
const (
	PoolBasic        = "basic"
	PoolAdvanced     = "advanced"
	PoolAdvancedHard = "advanced_hard"
)

// SamplingPlan is the target composition of one quiz.
type SamplingPlan struct {
	BasicNeed      int `json:"basic_need"`
	AdvNeed        int `json:"adv_need"`
	AdvHardCap     int `json:"adv_hard_cap"`
	HardDifficulty int `json:"hard_difficulty"`
}

func DefaultSamplingPlan() SamplingPlan {
	return SamplingPlan{
		BasicNeed:      3,
		AdvNeed:        7,
		AdvHardCap:     3,
		HardDifficulty: 3,
	}
}

type PoolReport struct {
	Available int `json:"available"`
	Needed    int `json:"needed"`
	Picked    int `json:"picked"`
}

func (p PoolReport) Short() bool {
	return p.Picked < p.Needed
}

// ShortageReport is advisory. A shortfall never fails sampling.
type ShortageReport struct {
	Basic        PoolReport `json:"basic"`
	Advanced     PoolReport `json:"advanced"`
	AdvancedHard PoolReport `json:"advanced_hard"`
}

// HasShortage reports whether the quiz is smaller than planned.
func (r ShortageReport) HasShortage() bool {
	return r.Basic.Short() || r.Advanced.Short()
}

// Messages describes each short pool for display.
func (r ShortageReport) Messages() []string {
	var msgs []string
	if r.Basic.Short() {
		msgs = append(msgs, fmt.Sprintf("basic questions: need %d, only %d available", r.Basic.Needed, r.Basic.Available))
	}
	if r.Advanced.Short() {
		msgs = append(msgs, fmt.Sprintf("advanced questions: need %d, only %d picked from %d available",
			r.Advanced.Needed, r.Advanced.Picked, r.Advanced.Available))
	}
	if r.AdvancedHard.Short() {
		msgs = append(msgs, fmt.Sprintf("hard advanced questions: cap %d, only %d available",
			r.AdvancedHard.Needed, r.AdvancedHard.Available))
	}
	return msgs
}

type SampleResult struct {
	Questions []*models.Question `json:"questions"`
	Shortage  ShortageReport     `json:"shortage"`
}

// Sampler draws stratified quizzes from the catalog. It is safe for
// concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler returns a sampler driven by src. The same seed and catalog
// always give the same quiz. A nil src is seeded from the clock.
func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Sampler{rng: rand.New(src)}
}

// Sample selects basic questions first, then up to AdvHardCap hard advanced
// questions, then fills the advanced quota from the non-hard advanced
// questions only. Pools are never substituted for one another.
func (s *Sampler) Sample(catalog []*models.Question, plan SamplingPlan) *SampleResult {
	active := lo.Filter(catalog, func(q *models.Question, _ int) bool {
		return q != nil && q.IsActive
	})
	basicPool := lo.Filter(active, func(q *models.Question, _ int) bool {
		return q.Variant.IsBasic()
	})
	advPool := lo.Filter(active, func(q *models.Question, _ int) bool {
		return q.Variant == models.VariantAdvanced
	})
	advHard, advRest := lo.FilterReject(advPool, func(q *models.Question, _ int) bool {
		return q.DifficultyLevel() == plan.HardDifficulty
	})

	s.mu.Lock()
	basicPick := s.take(basicPool, plan.BasicNeed)
	hardPick := s.take(advHard, plan.AdvHardCap)
	restPick := s.take(advRest, plan.AdvNeed-len(hardPick))
	s.mu.Unlock()

	selected := make([]*models.Question, 0, len(basicPick)+len(hardPick)+len(restPick))
	selected = append(selected, basicPick...)
	selected = append(selected, hardPick...)
	selected = append(selected, restPick...)

	return &SampleResult{
		Questions: selected,
		Shortage: ShortageReport{
			Basic:        PoolReport{Available: len(basicPool), Needed: plan.BasicNeed, Picked: len(basicPick)},
			Advanced:     PoolReport{Available: len(advPool), Needed: plan.AdvNeed, Picked: len(hardPick) + len(restPick)},
			AdvancedHard: PoolReport{Available: len(advHard), Needed: plan.AdvHardCap, Picked: len(hardPick)},
		},
	}
}

// Shuffle permutes questions in place.
func (s *Sampler) Shuffle(questions []*models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle(questions)
}

// take returns up to n elements of a shuffled copy of pool. Caller holds mu.
func (s *Sampler) take(pool []*models.Question, n int) []*models.Question {
	if n <= 0 || len(pool) == 0 {
		return []*models.Question{}
	}
	shuffled := append([]*models.Question(nil), pool...)
	s.shuffle(shuffled)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

// Fisher-Yates. Caller holds mu.
func (s *Sampler) shuffle(questions []*models.Question) {
	for i := len(questions) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		questions[i], questions[j] = questions[j], questions[i]
	}
}
