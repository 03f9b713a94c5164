// internal/workers/recommendation/resolve-jobs/handler_test.go
package resolvejobs

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerhunt-pipeline/internal/common/config"
	pipeerrors "careerhunt-pipeline/internal/common/errors"
	"careerhunt-pipeline/internal/common/knowledge"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/common/observability"
	"careerhunt-pipeline/internal/models"
	"careerhunt-pipeline/internal/store"
)

type fakeGraph struct {
	recommendations []string
	recErr          error
	queryJobs       []string
	queryErr        error
	queryEntities   []string
}

func (f *fakeGraph) UpsertNode(ctx context.Context, node knowledge.Node) error { return nil }

func (f *fakeGraph) QueryJobsByEntities(ctx context.Context, entities []string, limit int) ([]string, error) {
	f.queryEntities = entities
	return f.queryJobs, f.queryErr
}

func (f *fakeGraph) QueryRelatedSkills(ctx context.Context, entities []string, limit int) ([]knowledge.RelatedSkill, error) {
	return nil, nil
}

func (f *fakeGraph) RecommendationsFor(ctx context.Context, applicationID string) ([]string, error) {
	return f.recommendations, f.recErr
}

func (f *fakeGraph) EvaluateCandidate(ctx context.Context, jobID, applicationID string) (*knowledge.CandidateEvaluation, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGraph) Stats(ctx context.Context) (*knowledge.GraphStats, error) {
	return nil, errors.New("not implemented")
}

type fakeUsers struct {
	lastProcessed  string
	lastErr        error
	applicationIDs []string
}

func (f *fakeUsers) LastProcessedApplication(ctx context.Context, userID string) (string, error) {
	return f.lastProcessed, f.lastErr
}

func (f *fakeUsers) SetLastProcessedApplication(ctx context.Context, userID, applicationID string) error {
	return nil
}

func (f *fakeUsers) ApplicationIDs(ctx context.Context, userID string) ([]string, error) {
	return f.applicationIDs, nil
}

type fakeSkills struct {
	names []string
}

func (f *fakeSkills) UpsertLink(ctx context.Context, link store.SkillLink) (*models.SkillRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSkills) NamesForApplications(ctx context.Context, applicationIDs []string) ([]string, error) {
	return f.names, nil
}

func (f *fakeSkills) UnlinkJob(ctx context.Context, jobID string) error { return nil }

type fakeJobs struct {
	byID map[string]models.JobRecord
}

func (f *fakeJobs) ByIDs(ctx context.Context, ids []string) ([]models.JobRecord, error) {
	// Map iteration order is deliberately unordered, like the SQL ANY query.
	var jobs []models.JobRecord
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if job, ok := f.byID[id]; ok && !job.Expired {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (f *fakeJobs) SetStatus(ctx context.Context, id string, status models.ProcessingStatus) error {
	return nil
}

type fakeApplications struct{}

func (f *fakeApplications) ByID(ctx context.Context, id string) (*models.ApplicationRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeApplications) SetStatus(ctx context.Context, id string, status models.ProcessingStatus) error {
	return nil
}

func (f *fakeApplications) SaveEvaluation(ctx context.Context, id string, eval models.Evaluation) error {
	return nil
}

type fixture struct {
	handler *Handler
	graph   *fakeGraph
	users   *fakeUsers
	skills  *fakeSkills
	jobs    *fakeJobs
}

func newFixture(t *testing.T, cache *redis.Client) *fixture {
	f := &fixture{
		graph:  &fakeGraph{},
		users:  &fakeUsers{},
		skills: &fakeSkills{},
		jobs:   &fakeJobs{byID: make(map[string]models.JobRecord)},
	}

	st := &store.Store{
		Skills:       f.skills,
		Jobs:         f.jobs,
		Applications: &fakeApplications{},
		Users:        f.users,
	}

	f.handler = NewHandler(f.graph, st, cache, config.RecommendationConfig{
		Limit:    3,
		CacheTTL: 60000,
	}, observability.New("test"), logger.NewTestLogger(t))
	return f
}

func seedJobs(f *fixture, ids ...string) {
	for _, id := range ids {
		f.jobs.byID[id] = models.JobRecord{ID: id, Title: "Job " + id}
	}
}

func TestResolve_PreservesExternalRankOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.users.lastProcessed = "app-1"
	f.graph.recommendations = []string{"job_j3", "job_j1", "job_j2"}
	seedJobs(f, "j1", "j2", "j3")

	out, err := f.handler.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, out.Jobs, 3)
	assert.Equal(t, "j3", out.Jobs[0].ID)
	assert.Equal(t, "j1", out.Jobs[1].ID)
	assert.Equal(t, "j2", out.Jobs[2].ID)
	assert.False(t, out.Degraded)
	assert.Equal(t, SourceVector, out.Source)
}

func TestResolve_DropsUnknownAndExpiredJobs(t *testing.T) {
	f := newFixture(t, nil)
	f.users.lastProcessed = "app-1"
	f.graph.recommendations = []string{"job_j1", "job_missing", "job_j2", "job_expired"}
	seedJobs(f, "j1", "j2")
	f.jobs.byID["expired"] = models.JobRecord{ID: "expired", Expired: true}

	out, err := f.handler.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, out.Jobs, 2)
	assert.Equal(t, "j1", out.Jobs[0].ID)
	assert.Equal(t, "j2", out.Jobs[1].ID)
}

func TestResolve_EmptySuccessIsFinal(t *testing.T) {
	f := newFixture(t, nil)
	f.users.lastProcessed = "app-1"
	f.graph.recommendations = []string{}

	out, err := f.handler.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Empty(t, out.Jobs)
	assert.False(t, out.Degraded)
	assert.Equal(t, SourceVector, out.Source)
	assert.Nil(t, f.graph.queryEntities, "empty success must not advance to the skill graph")
}

func TestResolve_FallsBackToSkillGraph(t *testing.T) {
	f := newFixture(t, nil)
	f.users.lastProcessed = "app-1"
	f.users.applicationIDs = []string{"app-1"}
	f.skills.names = []string{"python", "sql"}
	f.graph.recErr = pipeerrors.NewExternalTimeoutError("GET /rag/recommendations/app-1")
	f.graph.queryJobs = []string{"job_j2"}
	seedJobs(f, "j2")

	out, err := f.handler.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, out.Jobs, 1)
	assert.Equal(t, "j2", out.Jobs[0].ID)
	assert.True(t, out.Degraded)
	assert.Equal(t, SourceSkillGraph, out.Source)

	assert.Contains(t, f.graph.queryEntities, "application_app-1")
	assert.Contains(t, f.graph.queryEntities, "skill_python")
	assert.Contains(t, f.graph.queryEntities, "skill_sql")
}

func TestResolve_PlaceholderWhenAllStrategiesFail(t *testing.T) {
	f := newFixture(t, nil)
	f.users.lastProcessed = "app-1"
	f.graph.recErr = pipeerrors.NewExternalUnavailableError("recommendations", errors.New("down"))
	f.graph.queryErr = pipeerrors.NewCircuitOpenError("query")

	out, err := f.handler.Resolve(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, out.Jobs, 3)
	assert.True(t, out.Degraded)
	assert.Equal(t, SourcePlaceholder, out.Source)
	assert.Equal(t, "job_fallback_1", out.Jobs[0].ID)

	// The placeholder set is deterministic across calls.
	again, err := f.handler.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, out.Jobs, again.Jobs)
}

func TestResolve_NoProcessedApplicationUsesSkills(t *testing.T) {
	f := newFixture(t, nil)
	f.users.lastProcessed = ""
	f.users.applicationIDs = []string{"app-9"}
	f.skills.names = []string{"go"}
	f.graph.queryJobs = []string{"job_j5"}
	seedJobs(f, "j5")

	out, err := f.handler.Resolve(context.Background(), "user-2")
	require.NoError(t, err)

	require.Len(t, out.Jobs, 1)
	assert.Equal(t, SourceSkillGraph, out.Source)
	assert.False(t, out.Degraded, "the skill graph is the primary strategy without an anchor application")
	assert.Equal(t, []string{"skill_go"}, f.graph.queryEntities)
}

func TestResolve_NoSkillsNoApplicationsIsEmpty(t *testing.T) {
	f := newFixture(t, nil)

	out, err := f.handler.Resolve(context.Background(), "user-3")
	require.NoError(t, err)

	assert.Empty(t, out.Jobs)
	assert.False(t, out.Degraded)
	assert.Equal(t, SourceNone, out.Source)
}

func TestResolve_UserNotFound(t *testing.T) {
	f := newFixture(t, nil)
	f.users.lastErr = pipeerrors.NewRecordNotFoundError("user", "ghost")

	_, err := f.handler.Resolve(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, pipeerrors.IsNotFound(err))
}

func TestResolve_HealthyResultIsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := newFixture(t, cache)
	f.users.lastProcessed = "app-1"
	f.graph.recommendations = []string{"job_j1"}
	seedJobs(f, "j1")

	first, err := f.handler.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, SourceVector, first.Source)

	// The graph may now fail; the cached answer serves.
	f.graph.recErr = pipeerrors.NewExternalTimeoutError("recommendations")

	second, err := f.handler.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	require.Len(t, second.Jobs, 1)
	assert.Equal(t, "j1", second.Jobs[0].ID)
}

func TestResolve_DegradedResultIsNotCached(t *testing.T) {
	cache, mock := redismock.NewClientMock()
	mock.ExpectGet(cacheKeyPrefix + "user-1").RedisNil()

	f := newFixture(t, cache)
	f.users.lastProcessed = "app-1"
	f.users.applicationIDs = []string{"app-1"}
	f.skills.names = []string{"python"}
	f.graph.recErr = pipeerrors.NewExternalTimeoutError("recommendations")
	f.graph.queryJobs = []string{"job_j1"}
	seedJobs(f, "j1")

	out, err := f.handler.Resolve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, out.Degraded)

	// No SET was expected; a cache write would fail the mock.
	assert.NoError(t, mock.ExpectationsWereMet())
}
