// Package memory provides in-memory implementations of the operation
// contracts. Tests and dry runs use them in place of cloud services.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/operations"
)

// Transcription replays a scripted status sequence per job. The last status
// in the sequence repeats once exhausted.
type Transcription struct {
	// Statuses consumed one per JobStatus call.
	Statuses []string

	// LanguageCode and TranscriptURI reported once a job is COMPLETED.
	LanguageCode  string
	TranscriptURI string

	// FailureReason reported when the job is FAILED.
	FailureReason string

	mu    sync.Mutex
	jobs  map[string]int
	Calls []string
}

// StartJob registers the job. Starting the same name twice is a permanent
// error, matching remote transcription services.
func (t *Transcription) StartJob(_ context.Context, jobName, mediaURI string, _ bool) (operations.JobInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.jobs == nil {
		t.jobs = make(map[string]int)
	}

	if _, exists := t.jobs[jobName]; exists {
		return operations.JobInfo{}, execution.Permanent(fmt.Errorf("job %q already exists", jobName))
	}

	t.jobs[jobName] = 0
	t.Calls = append(t.Calls, "start:"+jobName+":"+mediaURI)

	return operations.JobInfo{JobName: jobName, Status: operations.JobStatusInProgress}, nil
}

// JobStatus returns the next scripted status for the job.
func (t *Transcription) JobStatus(_ context.Context, jobName string) (operations.JobInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	polls, exists := t.jobs[jobName]
	if !exists {
		return operations.JobInfo{}, execution.Permanent(fmt.Errorf("job %q was never started", jobName))
	}

	t.jobs[jobName] = polls + 1
	t.Calls = append(t.Calls, "status:"+jobName)

	idx := polls
	if idx >= len(t.Statuses) {
		idx = len(t.Statuses) - 1
	}

	status := operations.JobStatusInProgress
	if idx >= 0 {
		status = t.Statuses[idx]
	}

	info := operations.JobInfo{JobName: jobName, Status: status}

	switch status {
	case operations.JobStatusCompleted:
		info.LanguageCode = t.LanguageCode
		info.TranscriptURI = t.TranscriptURI
	case operations.JobStatusFailed:
		info.FailureReason = t.FailureReason
	}

	return info, nil
}

// Translation records calls and translates by tagging the text, so tests
// can tell translated output from the original.
type Translation struct {
	mu    sync.Mutex
	Calls []string
}

func (t *Translation) Translate(_ context.Context, sourceLang, targetLang, text string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Calls = append(t.Calls, fmt.Sprintf("%s->%s:%s", sourceLang, targetLang, text))

	return fmt.Sprintf("[%s] %s", targetLang, text), nil
}

// Speech records synthesis submissions and hands back generated task IDs.
type Speech struct {
	mu    sync.Mutex
	Calls []string
}

func (s *Speech) StartSynthesis(_ context.Context, text, voice, outputPrefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, fmt.Sprintf("%s:%s:%s", voice, outputPrefix, text))

	return uuid.New().String(), nil
}

// Store is a map-backed object store.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// Put stores an object.
func (s *Store) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}

	s.objects[bucket+"/"+key] = data
}

func (s *Store) Fetch(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, exists := s.objects[bucket+"/"+key]
	if !exists {
		return nil, execution.Permanent(fmt.Errorf("object %s/%s does not exist", bucket, key))
	}

	return data, nil
}

// TranscriptDocument renders a minimal transcription result file holding the
// given text.
func TranscriptDocument(text string) []byte {
	return fmt.Appendf(nil, `{"results":{"transcripts":[{"transcript":%q}]}}`, text)
}
