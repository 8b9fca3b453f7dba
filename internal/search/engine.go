package search

import (
	"sort"
	"strings"
	"sync"

	"github.com/mfreed/repodex/pkg/types"
)

// Ranking constants. A record whose semantic similarity clears the
// threshold is included even without a keyword hit; the weights favor
// the semantic signal.
const (
	DefaultPageSize   = 10
	DefaultThreshold  = 0.4
	keywordWeight     = 0.3
	semanticWeight    = 0.7
)

// SortColumn selects the ordering used when no hybrid scores apply.
type SortColumn int

const (
	SortByName SortColumn = iota
	SortByVisibility
	SortByCreated
)

// Engine holds the interactive search state. All methods are safe for
// concurrent use; the Refresher delivers scores from its own
// goroutine.
type Engine struct {
	mu sync.Mutex

	repos       []*types.Repository
	filter      string
	showPublic  bool
	showPrivate bool
	sortColumn  SortColumn
	sortAsc     bool

	scores     map[string]float64
	scoreQuery string

	page      int
	pageSize  int
	threshold float64
}

// NewEngine creates an engine with both visibilities enabled and
// name-ascending ordering.
func NewEngine(pageSize int, threshold float64) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{
		showPublic:  true,
		showPrivate: true,
		sortAsc:     true,
		pageSize:    pageSize,
		threshold:   threshold,
	}
}

// SetRepositories replaces the record list. The current page is
// clamped against the new result size.
func (e *Engine) SetRepositories(repos []*types.Repository) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repos = repos
	e.clampPageLocked()
}

// SetFilter updates the query text and resets to the first page.
// Previously delivered scores stay stored but only apply while the
// filter still matches the query they were computed for.
func (e *Engine) SetFilter(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.filter == text {
		return
	}
	e.filter = text
	e.page = 0
}

// Filter returns the current query text.
func (e *Engine) Filter() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// SetVisibility toggles public/private records and resets to the
// first page.
func (e *Engine) SetVisibility(showPublic, showPrivate bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.showPublic = showPublic
	e.showPrivate = showPrivate
	e.page = 0
}

// SetSort selects the column ordering used when no hybrid scores
// apply.
func (e *Engine) SetSort(column SortColumn, ascending bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sortColumn = column
	e.sortAsc = ascending
}

// SetSemanticScores delivers similarity scores computed for query.
// Scores for a query the user has moved past are dropped. Fresh
// scores reset to the first page and report true.
func (e *Engine) SetSemanticScores(query string, scores map[string]float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if query != e.filter {
		return false
	}
	e.scores = scores
	e.scoreQuery = query
	e.page = 0
	return true
}

// scoresApplyLocked reports whether the stored score map belongs to
// the current filter.
func (e *Engine) scoresApplyLocked() bool {
	return e.filter != "" && e.scores != nil && e.scoreQuery == e.filter
}

// Score returns the hybrid score of one record under the current
// state. Records outside the result set score zero.
func (e *Engine) Score(rec *types.Repository) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	score, _ := e.scoreLocked(rec)
	return score
}

// scoreLocked computes (score, included) for one record.
func (e *Engine) scoreLocked(rec *types.Repository) (float64, bool) {
	if e.filter == "" {
		return 0, true
	}

	keyword := strings.Contains(rec.SearchText(), strings.ToLower(e.filter))
	if !e.scoresApplyLocked() {
		return 0, keyword
	}

	sem := e.scores[rec.FullName]
	switch {
	case keyword && sem > 0:
		return keywordWeight + semanticWeight*sem, true
	case keyword:
		return keywordWeight, true
	case sem >= e.threshold:
		return semanticWeight * sem, true
	default:
		return 0, false
	}
}

func (e *Engine) visibleLocked(rec *types.Repository) bool {
	if rec.Private {
		return e.showPrivate
	}
	return e.showPublic
}

// resultsLocked computes the filtered, ordered result list.
func (e *Engine) resultsLocked() []*types.Repository {
	type scored struct {
		rec   *types.Repository
		score float64
	}

	var results []scored
	for _, rec := range e.repos {
		if !e.visibleLocked(rec) {
			continue
		}
		score, ok := e.scoreLocked(rec)
		if !ok {
			continue
		}
		results = append(results, scored{rec: rec, score: score})
	}

	if e.scoresApplyLocked() {
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].score != results[j].score {
				return results[i].score > results[j].score
			}
			return results[i].rec.Name < results[j].rec.Name
		})
	} else {
		sort.SliceStable(results, func(i, j int) bool {
			a, b := results[i].rec, results[j].rec
			if equalByColumn(a, b, e.sortColumn) {
				// Ties always break by name ascending.
				return a.Name < b.Name
			}
			if e.sortAsc {
				return e.columnLess(a, b)
			}
			return e.columnLess(b, a)
		})
	}

	out := make([]*types.Repository, len(results))
	for i, s := range results {
		out[i] = s.rec
	}
	return out
}

func (e *Engine) columnLess(a, b *types.Repository) bool {
	switch e.sortColumn {
	case SortByVisibility:
		if a.Private != b.Private {
			return !a.Private
		}
	case SortByCreated:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	return a.Name < b.Name
}

func equalByColumn(a, b *types.Repository, col SortColumn) bool {
	switch col {
	case SortByVisibility:
		return a.Private == b.Private
	case SortByCreated:
		return a.CreatedAt.Equal(b.CreatedAt)
	default:
		return a.Name == b.Name
	}
}

// Results returns the full filtered, ordered result list.
func (e *Engine) Results() []*types.Repository {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resultsLocked()
}

// PageCount returns the number of pages for the current results. An
// empty result set still has one (empty) page.
func (e *Engine) PageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pageCountLocked(len(e.resultsLocked()))
}

func (e *Engine) pageCountLocked(n int) int {
	if n == 0 {
		return 1
	}
	return (n + e.pageSize - 1) / e.pageSize
}

func (e *Engine) clampPageLocked() {
	last := e.pageCountLocked(len(e.resultsLocked())) - 1
	if e.page > last {
		e.page = last
	}
	if e.page < 0 {
		e.page = 0
	}
}

// SetPage jumps to a page, clamped to the valid range.
func (e *Engine) SetPage(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page = n
	e.clampPageLocked()
}

// CurrentPage returns the clamped current page index.
func (e *Engine) CurrentPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clampPageLocked()
	return e.page
}

// Page returns the records of the current page.
func (e *Engine) Page() []*types.Repository {
	e.mu.Lock()
	defer e.mu.Unlock()

	results := e.resultsLocked()
	last := e.pageCountLocked(len(results)) - 1
	if e.page > last {
		e.page = last
	}
	if e.page < 0 {
		e.page = 0
	}

	start := e.page * e.pageSize
	if start >= len(results) {
		return nil
	}
	end := start + e.pageSize
	if end > len(results) {
		end = len(results)
	}
	return results[start:end]
}

// NextPage advances one page if possible.
func (e *Engine) NextPage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page++
	e.clampPageLocked()
}

// PrevPage goes back one page if possible.
func (e *Engine) PrevPage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.page--
	e.clampPageLocked()
}
