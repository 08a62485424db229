// Package operations defines the capability contracts the pipeline graphs
// call into: media transcription, text translation, speech synthesis and
// object storage. Implementations live in subpackages (awscloud, memory).
package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/voxflow/voxflow/pkg/execution"
)

// Transcription job statuses as reported by JobStatus.
const (
	JobStatusQueued     = "QUEUED"
	JobStatusInProgress = "IN_PROGRESS"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

// JobInfo describes a transcription job's remote state. LanguageCode and
// TranscriptURI are only populated once the job completed.
type JobInfo struct {
	JobName       string `json:"jobName"`
	Status        string `json:"status"`
	LanguageCode  string `json:"languageCode,omitempty"`
	TranscriptURI string `json:"transcriptUri,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

// TranscriptionService starts and observes media transcription jobs.
type TranscriptionService interface {
	// StartJob submits a transcription job. Submitting a name that already
	// exists must return a permanent error; callers rely on job names being
	// derived from the execution ID for idempotency.
	StartJob(ctx context.Context, jobName, mediaURI string, identifyLanguage bool) (JobInfo, error)

	// JobStatus reports the current state of a previously started job.
	JobStatus(ctx context.Context, jobName string) (JobInfo, error)
}

// TranslationService translates text between languages.
type TranslationService interface {
	Translate(ctx context.Context, sourceLang, targetLang, text string) (string, error)
}

// SpeechService submits speech synthesis tasks. Synthesis is submit-only:
// the pipeline never polls for its completion.
type SpeechService interface {
	StartSynthesis(ctx context.Context, text, voice, outputPrefix string) (taskID string, err error)
}

// ObjectStore fetches stored objects, primarily transcript documents.
type ObjectStore interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// transcriptDocument is the shape of a completed transcription result file.
type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ParseTranscript extracts the transcript text from a transcription result
// document.
func ParseTranscript(data []byte) (string, error) {
	var doc transcriptDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", execution.Permanent(fmt.Errorf("malformed transcript document: %w", err))
	}

	if len(doc.Results.Transcripts) == 0 {
		return "", execution.Permanent(fmt.Errorf("transcript document contains no transcripts"))
	}

	return doc.Results.Transcripts[0].Transcript, nil
}

// ParseObjectURI splits an object URI into bucket and key. Accepts the
// "s3://bucket/key" form and the path-style HTTPS form transcription
// services hand back ("https://s3.<region>.amazonaws.com/bucket/key").
func ParseObjectURI(uri string) (bucket, key string, err error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", "", execution.Permanent(fmt.Errorf("invalid object URI %q: %w", uri, err))
	}

	switch parsed.Scheme {
	case "s3":
		bucket = parsed.Host
		key = strings.TrimPrefix(parsed.Path, "/")
	case "https":
		parts := strings.SplitN(strings.TrimPrefix(parsed.Path, "/"), "/", 2)
		if len(parts) == 2 {
			bucket, key = parts[0], parts[1]
		}
	default:
		return "", "", execution.Permanent(fmt.Errorf("unsupported object URI scheme %q", parsed.Scheme))
	}

	if bucket == "" || key == "" {
		return "", "", execution.Permanent(fmt.Errorf("object URI %q has no bucket/key", uri))
	}

	return bucket, key, nil
}

// ObjectURI renders the s3 form of a bucket/key pair.
func ObjectURI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
