package assistant

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"codeprep.io/assistant/internal/store"
)

// TopicStats aggregates one user's history for a single catalog topic.
// Attempted and Solved count problems, not individual submissions.
type TopicStats struct {
	Topic     string `json:"topic"`
	Attempted int    `json:"attempted"`
	Solved    int    `json:"solved"`
}

func (t TopicStats) Ratio() float64 {
	if t.Attempted == 0 {
		return 0
	}
	return float64(t.Solved) / float64(t.Attempted)
}

// IsWeakness: nothing solved yet, or a low solve rate across more than
// three attempted problems.
func (t TopicStats) IsWeakness() bool {
	return t.Solved == 0 || (t.Ratio() < 0.3 && t.Attempted > 3)
}

func (t TopicStats) IsStrength() bool {
	return t.Ratio() > 0.7
}

// RecommendedProblem is an ephemeral view object: a catalog problem plus
// the reason it was picked. Recomputed on every request, never persisted.
type RecommendedProblem struct {
	store.Problem
	Reason string `json:"reason"`
}

type FocusArea struct {
	Topic     string  `json:"topic"`
	Attempted int     `json:"attempted"`
	Solved    int     `json:"solved"`
	SolveRate float64 `json:"solve_rate"`
}

type StudyPlan struct {
	Level               Level                `json:"level"`
	FocusAreas          []FocusArea          `json:"focusAreas"`
	RecommendedProblems []RecommendedProblem `json:"recommendedProblems"`
	WeeklyGoal          string               `json:"weeklyGoal"`
}

type CareerGuidance struct {
	Readiness   string   `json:"readiness"`
	Strengths   []string `json:"strengths"`
	Gaps        []string `json:"gaps"`
	Advice      string   `json:"advice"`
	NextSteps   []string `json:"nextSteps"`
	SolvedTotal int      `json:"solvedTotal"`
}

// Recommender computes practice recommendations fresh from the user's
// stored progress on every call.
type Recommender struct {
	store *store.SQLiteStore
}

func NewRecommender(db *store.SQLiteStore) *Recommender {
	return &Recommender{store: db}
}

// TopicStats computes per-topic solved/attempted counts from the user's
// progress rows joined against the catalog.
func (r *Recommender) TopicStats(userID int64) ([]TopicStats, error) {
	progress, err := r.store.GetUserProgress(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user progress: %w", err)
	}
	problems, err := r.store.GetAllProblems()
	if err != nil {
		return nil, fmt.Errorf("failed to load problem catalog: %w", err)
	}

	byID := lo.KeyBy(problems, func(p store.Problem) int64 { return p.ID })

	stats := make(map[string]*TopicStats)
	for _, entry := range progress {
		problem, ok := byID[entry.ProblemID]
		if !ok {
			continue // progress row for a problem no longer in the catalog
		}
		for _, topic := range problem.Topics {
			st, ok := stats[topic]
			if !ok {
				st = &TopicStats{Topic: topic}
				stats[topic] = st
			}
			st.Attempted++
			if entry.Completed {
				st.Solved++
			}
		}
	}

	result := lo.Map(lo.Values(stats), func(st *TopicStats, _ int) TopicStats { return *st })
	sort.Slice(result, func(i, j int) bool { return result[i].Topic < result[j].Topic })
	return result, nil
}

func (r *Recommender) solvedCount(userID int64) (int, error) {
	progress, err := r.store.GetUserProgress(userID)
	if err != nil {
		return 0, err
	}
	return lo.CountBy(progress, func(e store.ProgressEntry) bool { return e.Completed }), nil
}

// RecommendProblems picks up to limit uncompleted catalog problems,
// biased toward the user's weak topics. Limit is clamped to 3..7.
func (r *Recommender) RecommendProblems(userID int64, limit int) ([]RecommendedProblem, error) {
	if limit < 3 {
		limit = 3
	} else if limit > 7 {
		limit = 7
	}

	problems, err := r.store.GetAllProblems()
	if err != nil {
		return nil, fmt.Errorf("failed to load problem catalog: %w", err)
	}
	progress, err := r.store.GetUserProgress(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user progress: %w", err)
	}
	stats, err := r.TopicStats(userID)
	if err != nil {
		return nil, err
	}

	completed := make(map[int64]bool)
	attempted := make(map[int64]bool)
	solved := 0
	for _, entry := range progress {
		attempted[entry.ProblemID] = true
		if entry.Completed {
			completed[entry.ProblemID] = true
			solved++
		}
	}

	weakTopics := make(map[string]bool)
	for _, st := range stats {
		if st.IsWeakness() {
			weakTopics[st.Topic] = true
		}
	}

	level := LevelForSolved(solved)
	preferred := preferredDifficulty(level)

	candidates := lo.Filter(problems, func(p store.Problem, _ int) bool {
		return !completed[p.ID]
	})

	type scored struct {
		problem store.Problem
		score   int
		reason  string
	}
	ranked := lo.Map(candidates, func(p store.Problem, _ int) scored {
		s := scored{problem: p}
		for _, topic := range p.Topics {
			if weakTopics[topic] {
				s.score += 3
				s.reason = fmt.Sprintf("strengthens %s, one of your weaker topics", topic)
				break
			}
		}
		if !attempted[p.ID] {
			s.score++
			if s.reason == "" {
				s.reason = "a topic you haven't explored yet"
			}
		}
		if p.Difficulty == preferred {
			s.score++
			if s.reason == "" {
				s.reason = fmt.Sprintf("%s difficulty matches your level", p.Difficulty)
			}
		}
		if s.reason == "" {
			s.reason = "good general practice"
		}
		return s
	})

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].problem.ID < ranked[j].problem.ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return lo.Map(ranked, func(s scored, _ int) RecommendedProblem {
		return RecommendedProblem{Problem: s.problem, Reason: s.reason}
	}), nil
}

// RelatedProblems filters the catalog by topic overlap with the given
// topic, excluding anything the user already completed. Capped at limit.
func (r *Recommender) RelatedProblems(userID int64, topic string, limit int) ([]RecommendedProblem, error) {
	if topic == "" {
		return nil, nil
	}
	problems, err := r.store.GetAllProblems()
	if err != nil {
		return nil, fmt.Errorf("failed to load problem catalog: %w", err)
	}
	progress, err := r.store.GetUserProgress(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user progress: %w", err)
	}

	completed := make(map[int64]bool)
	for _, entry := range progress {
		if entry.Completed {
			completed[entry.ProblemID] = true
		}
	}

	var related []RecommendedProblem
	for _, p := range problems {
		if completed[p.ID] {
			continue
		}
		if topicsMatch(topic, p.Topics) {
			related = append(related, RecommendedProblem{
				Problem: p,
				Reason:  fmt.Sprintf("practices %s", topic),
			})
			if len(related) == limit {
				break
			}
		}
	}
	return related, nil
}

// topicsMatch reports whether the query topic overlaps any of the
// problem's topics, tolerating case and minor spelling differences.
func topicsMatch(query string, topics []string) bool {
	for _, t := range topics {
		if fuzzy.MatchNormalizedFold(query, t) || fuzzy.MatchNormalizedFold(t, query) {
			return true
		}
	}
	return false
}

func (r *Recommender) StudyPlan(userID int64) (*StudyPlan, error) {
	stats, err := r.TopicStats(userID)
	if err != nil {
		return nil, err
	}
	solved, err := r.solvedCount(userID)
	if err != nil {
		return nil, err
	}

	weak := lo.Filter(stats, func(st TopicStats, _ int) bool { return st.IsWeakness() })
	sort.Slice(weak, func(i, j int) bool { return weak[i].Ratio() < weak[j].Ratio() })
	if len(weak) > 3 {
		weak = weak[:3]
	}

	focus := lo.Map(weak, func(st TopicStats, _ int) FocusArea {
		return FocusArea{Topic: st.Topic, Attempted: st.Attempted, Solved: st.Solved, SolveRate: st.Ratio()}
	})

	recommended, err := r.RecommendProblems(userID, 5)
	if err != nil {
		return nil, err
	}

	level := LevelForSolved(solved)
	goal := "Solve 3 problems this week, at least one from each focus area."
	if level == LevelAdvanced {
		goal = "Solve 5 problems this week, including at least two rated Hard."
	}

	return &StudyPlan{
		Level:               level,
		FocusAreas:          focus,
		RecommendedProblems: recommended,
		WeeklyGoal:          goal,
	}, nil
}

func (r *Recommender) CareerGuidance(userID int64) (*CareerGuidance, error) {
	stats, err := r.TopicStats(userID)
	if err != nil {
		return nil, err
	}
	solved, err := r.solvedCount(userID)
	if err != nil {
		return nil, err
	}

	strengths := lo.FilterMap(stats, func(st TopicStats, _ int) (string, bool) {
		return st.Topic, st.IsStrength()
	})
	gaps := lo.FilterMap(stats, func(st TopicStats, _ int) (string, bool) {
		return st.Topic, st.IsWeakness()
	})

	var readiness, advice string
	switch LevelForSolved(solved) {
	case LevelAdvanced:
		readiness = "interview-ready"
		advice = "Your solve count puts you in good shape. Shift focus to timed mock interviews and system design, and keep your weak topics warm with one problem a week."
	case LevelIntermediate:
		readiness = "building"
		advice = "You have a solid base. Close the gaps listed below, then start practicing under time pressure: 30 minutes per medium problem."
	default:
		readiness = "early"
		advice = "Focus on fundamentals before interview prep: arrays, strings, and hash maps. Consistency beats volume at this stage."
	}

	steps := []string{"Review the focus topics in your study plan"}
	if len(gaps) > 0 {
		steps = append(steps, fmt.Sprintf("Solve two problems in %s this week", gaps[0]))
	}
	steps = append(steps, "Do one timed practice session")

	return &CareerGuidance{
		Readiness:   readiness,
		Strengths:   strengths,
		Gaps:        gaps,
		Advice:      advice,
		NextSteps:   steps,
		SolvedTotal: solved,
	}, nil
}

func preferredDifficulty(level Level) string {
	switch level {
	case LevelAdvanced:
		return "Hard"
	case LevelIntermediate:
		return "Medium"
	default:
		return "Easy"
	}
}
