// internal/workers/ingestion/link-skills/handler_test.go
package linkskills

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/models"
	"careerhunt-pipeline/internal/store"
)

// fakeSkills mimics the atomic upsert contract of the Postgres store: one
// lock per call, frequency counts every link, owner arrays are unions.
type fakeSkills struct {
	mu      sync.Mutex
	records map[string]*models.SkillRecord
	failOn  map[string]bool
}

func newFakeSkills() *fakeSkills {
	return &fakeSkills{
		records: make(map[string]*models.SkillRecord),
		failOn:  make(map[string]bool),
	}
}

func (f *fakeSkills) UpsertLink(ctx context.Context, link store.SkillLink) (*models.SkillRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failOn[link.Name] {
		return nil, errors.New("upsert failed")
	}

	record, ok := f.records[link.Name]
	if !ok {
		record = &models.SkillRecord{
			Name:        link.Name,
			DisplayName: link.DisplayName,
			Confidence:  link.Confidence,
			Origin:      link.Origin,
		}
		f.records[link.Name] = record
	}
	record.Frequency++
	if link.Confidence > record.Confidence {
		record.Confidence = link.Confidence
	}

	switch link.Origin {
	case models.OriginResume:
		record.ApplicationIDs = appendUnique(record.ApplicationIDs, link.OwnerID)
	case models.OriginJobPosting:
		record.JobIDs = appendUnique(record.JobIDs, link.OwnerID)
	}

	copied := *record
	return &copied, nil
}

func (f *fakeSkills) NamesForApplications(ctx context.Context, applicationIDs []string) ([]string, error) {
	return nil, nil
}

func (f *fakeSkills) UnlinkJob(ctx context.Context, jobID string) error {
	return nil
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func TestExecute_NormalizesAndDeduplicates(t *testing.T) {
	skills := newFakeSkills()
	handler := NewHandler(skills, logger.NewTestLogger(t))

	out, err := handler.Execute(context.Background(), Input{
		OwnerID: "app-1",
		Origin:  models.OriginResume,
		Entries: []Entry{
			{Name: "  Python ", Confidence: 0.7},
			{Name: "python", Confidence: 0.9},
			{Name: "Go", Confidence: 0.8},
			{Name: "   ", Confidence: 0.5},
		},
	})
	require.NoError(t, err)

	require.Len(t, out.Linked, 2)
	assert.Empty(t, out.Failed)

	record := skills.records["python"]
	require.NotNil(t, record)
	assert.Equal(t, int64(1), record.Frequency, "one batch links a skill once")
	assert.Equal(t, 0.9, record.Confidence, "best confidence in the batch wins")
	assert.Equal(t, "Python", record.DisplayName)
	assert.Equal(t, []string{"app-1"}, record.ApplicationIDs)
}

func TestExecute_PartialFailureContinues(t *testing.T) {
	skills := newFakeSkills()
	skills.failOn["go"] = true
	handler := NewHandler(skills, logger.NewTestLogger(t))

	out, err := handler.Execute(context.Background(), Input{
		OwnerID: "job-1",
		Origin:  models.OriginJobPosting,
		Entries: []Entry{
			{Name: "Go", Confidence: 0.8},
			{Name: "Kubernetes", Confidence: 0.7},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"go"}, out.Failed)
	require.Len(t, out.Linked, 1)
	assert.Equal(t, "kubernetes", out.Linked[0].Name)
}

func TestExecute_ConcurrentOwnersBothSurvive(t *testing.T) {
	skills := newFakeSkills()
	handler := NewHandler(skills, logger.NewTestLogger(t))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := handler.Execute(context.Background(), Input{
			OwnerID: "app-1",
			Origin:  models.OriginResume,
			Entries: []Entry{{Name: "Python", Confidence: 0.8}},
		})
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := handler.Execute(context.Background(), Input{
			OwnerID: "job-9",
			Origin:  models.OriginJobPosting,
			Entries: []Entry{{Name: "python", Confidence: 0.6}},
		})
		assert.NoError(t, err)
	}()
	wg.Wait()

	record := skills.records["python"]
	require.NotNil(t, record)
	assert.Equal(t, int64(2), record.Frequency)
	assert.Equal(t, []string{"app-1"}, record.ApplicationIDs)
	assert.Equal(t, []string{"job-9"}, record.JobIDs)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase passthrough", "python", "python"},
		{"case folding", "PyThOn", "python"},
		{"whitespace trimming", "  Go \t", "go"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}
