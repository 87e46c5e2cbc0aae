package integrity

import (
	"context"
	"fmt"
	"sync"

	"github.com/otcheredev/nutricore/internal/models"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of one full auditor pass
type Result struct {
	Issues      []models.IntegrityIssue
	CheckErrors map[string]error
}

// Runner executes a set of checks concurrently and aggregates their
// findings. Checks are read-only and independent, so a failure in one
// neither blocks nor taints the others.
type Runner struct {
	checks []Check
}

// NewRunner creates a runner over the given checks
func NewRunner(checks ...Check) *Runner {
	return &Runner{checks: checks}
}

// Run executes every check and stamps each issue with the name of the
// check that produced it. Issues are returned verbatim: nothing is
// deduplicated, downgraded or dropped.
func (r *Runner) Run(ctx context.Context) Result {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = Result{CheckErrors: make(map[string]error)}
	)

	for _, check := range r.checks {
		wg.Add(1)
		go func(check Check) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					mu.Lock()
					result.CheckErrors[check.Name()] = fmt.Errorf("check panicked: %v", rec)
					mu.Unlock()
				}
			}()

			issues, err := check.Run(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error().Err(err).Str("check", check.Name()).Msg("integrity check failed to run")
				result.CheckErrors[check.Name()] = err
				return
			}
			for i := range issues {
				issues[i].CheckName = check.Name()
			}
			result.Issues = append(result.Issues, issues...)
		}(check)
	}

	wg.Wait()
	return result
}
