package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/nutricore/internal/cache"
	"github.com/otcheredev/nutricore/internal/integrity"
	"github.com/otcheredev/nutricore/internal/metrics"
	"github.com/otcheredev/nutricore/internal/models"
	"github.com/otcheredev/nutricore/internal/repository"
	"github.com/rs/zerolog/log"
)

// summaryTTL bounds how stale the cached dashboard summary may get
const summaryTTL = 24 * time.Hour

// IntegrityService owns the auditor lifecycle: it assembles the checks over
// the repository sources, runs them, writes the append-only ledger and
// keeps a cached summary for the dashboard surface.
type IntegrityService struct {
	repo   *repository.IntegrityRepository
	cache  cache.Cache
	runner *integrity.Runner

	mu      sync.Mutex
	running bool
}

// NewIntegrityService wires the five checks to their data sources
func NewIntegrityService(repo *repository.IntegrityRepository, c cache.Cache) *IntegrityService {
	return &IntegrityService{
		repo:  repo,
		cache: c,
		runner: integrity.NewRunner(
			integrity.NewCanaryCheck(),
			integrity.NewDatasetCheck(repo),
			integrity.NewSnapshotCheck(repo),
			integrity.NewImmutabilityCheck(repo),
			integrity.NewCrossTenantCheck(repo),
		),
	}
}

// ErrRunInProgress is returned when a run is triggered while one is active
var ErrRunInProgress = fmt.Errorf("an integrity run is already in progress")

// RunNow executes one full auditor pass and records it. A run that could
// not complete is still recorded, with status failed; it never blocks the
// next run.
func (s *IntegrityService) RunNow(ctx context.Context) (*models.IntegrityCheckRun, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	started := time.Now().UTC()
	result := s.runner.Run(ctx)
	finished := time.Now().UTC()
	metrics.IntegrityRunDuration.Observe(finished.Sub(started).Seconds())

	maxSeverity := integrity.MaxSeverity(result.Issues)
	status := integrity.StatusFor(maxSeverity, len(result.CheckErrors) > 0)

	run := &models.IntegrityCheckRun{
		StartedAt:   started,
		FinishedAt:  finished,
		Status:      status,
		MaxSeverity: maxSeverity,
		IssueCount:  len(result.Issues),
		Error:       joinCheckErrors(result.CheckErrors),
	}
	if err := s.repo.RecordRun(ctx, run, result.Issues); err != nil {
		return nil, err
	}

	metrics.IntegrityRuns.WithLabelValues(status).Inc()
	for _, issue := range result.Issues {
		metrics.IntegrityIssues.WithLabelValues(issue.CheckName, string(issue.Severity)).Inc()
	}

	log.Info().
		Str("run_id", run.ID.String()).
		Str("status", status).
		Int("issues", run.IssueCount).
		Dur("duration", finished.Sub(started)).
		Msg("Integrity run recorded")

	s.cacheSummary(ctx, run)
	return run, nil
}

// ListRuns returns recorded runs newest first
func (s *IntegrityService) ListRuns(ctx context.Context, limit, offset int) ([]models.IntegrityCheckRun, error) {
	return s.repo.ListRuns(ctx, limit, offset)
}

// GetRunIssues returns one run and all its issues
func (s *IntegrityService) GetRunIssues(ctx context.Context, runID uuid.UUID) (*models.IntegrityCheckRun, []models.IntegrityIssue, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	issues, err := s.repo.ListIssues(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return run, issues, nil
}

// LatestSummary returns the most recent run as JSON, served from cache
// when possible.
func (s *IntegrityService) LatestSummary(ctx context.Context) ([]byte, error) {
	if data, err := s.cache.Get(ctx, cache.LatestRunKey); err == nil {
		return data, nil
	}

	runs, err := s.repo.ListRuns(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no integrity runs recorded yet")
	}
	s.cacheSummary(ctx, &runs[0])
	return json.Marshal(runs[0])
}

func (s *IntegrityService) cacheSummary(ctx context.Context, run *models.IntegrityCheckRun) {
	data, err := json.Marshal(run)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.LatestRunKey, data, summaryTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache integrity summary")
	}
}

func joinCheckErrors(errs map[string]error) string {
	if len(errs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(errs))
	for name, err := range errs {
		parts = append(parts, name+": "+err.Error())
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
