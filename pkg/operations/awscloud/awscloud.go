// Package awscloud implements the operation contracts on top of the AWS
// SDK: Transcribe for transcription, Translate for translation, Polly for
// speech synthesis and S3 for object storage.
package awscloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	transcribetypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	"github.com/aws/smithy-go"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/operations"
)

// classify maps an AWS service error onto the engine's retry taxonomy.
// Throttling and internal faults are worth retrying; everything else is
// treated as a caller problem.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException",
			"LimitExceededException", "ServiceUnavailableException",
			"InternalFailureException", "InternalServerError",
			"RequestTimeout", "SlowDown":
			return execution.Transient(err)
		default:
			return execution.Permanent(err)
		}
	}

	// Transport-level failures (connection reset, DNS) have no API error
	// code and are retryable.
	return execution.Transient(err)
}

// Transcription drives Amazon Transcribe. Completed transcripts are written
// to OutputBucket so the pipeline can fetch them through the object store.
type Transcription struct {
	client       *transcribe.Client
	outputBucket string
	outputPrefix string
}

func NewTranscription(cfg aws.Config, outputBucket, outputPrefix string) *Transcription {
	return &Transcription{
		client:       transcribe.NewFromConfig(cfg),
		outputBucket: outputBucket,
		outputPrefix: outputPrefix,
	}
}

func (t *Transcription) StartJob(ctx context.Context, jobName, mediaURI string, identifyLanguage bool) (operations.JobInfo, error) {
	input := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		Media:                &transcribetypes.Media{MediaFileUri: aws.String(mediaURI)},
		IdentifyLanguage:     aws.Bool(identifyLanguage),
		OutputBucketName:     aws.String(t.outputBucket),
		OutputKey:            aws.String(t.outputPrefix + jobName + ".json"),
	}

	if !identifyLanguage {
		input.LanguageCode = transcribetypes.LanguageCodeEnUs
	}

	out, err := t.client.StartTranscriptionJob(ctx, input)
	if err != nil {
		return operations.JobInfo{}, classify(err)
	}

	return jobInfo(out.TranscriptionJob), nil
}

func (t *Transcription) JobStatus(ctx context.Context, jobName string) (operations.JobInfo, error) {
	out, err := t.client.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
	})
	if err != nil {
		return operations.JobInfo{}, classify(err)
	}

	return jobInfo(out.TranscriptionJob), nil
}

func jobInfo(job *transcribetypes.TranscriptionJob) operations.JobInfo {
	info := operations.JobInfo{
		JobName: aws.ToString(job.TranscriptionJobName),
		Status:  string(job.TranscriptionJobStatus),
	}

	if job.LanguageCode != "" {
		info.LanguageCode = string(job.LanguageCode)
	}

	if job.Transcript != nil {
		info.TranscriptURI = aws.ToString(job.Transcript.TranscriptFileUri)
	}

	info.FailureReason = aws.ToString(job.FailureReason)

	return info
}

// Translation drives Amazon Translate.
type Translation struct {
	client *translate.Client
}

func NewTranslation(cfg aws.Config) *Translation {
	return &Translation{client: translate.NewFromConfig(cfg)}
}

func (t *Translation) Translate(ctx context.Context, sourceLang, targetLang, text string) (string, error) {
	out, err := t.client.TranslateText(ctx, &translate.TranslateTextInput{
		Text: aws.String(text),
		// Transcription reports regional codes ("es-ES"); translation wants
		// the base language.
		SourceLanguageCode: aws.String(baseLanguage(sourceLang)),
		TargetLanguageCode: aws.String(baseLanguage(targetLang)),
	})
	if err != nil {
		return "", classify(err)
	}

	return aws.ToString(out.TranslatedText), nil
}

func baseLanguage(code string) string {
	if base, _, found := strings.Cut(code, "-"); found {
		return base
	}

	return code
}

// Speech drives Amazon Polly's asynchronous synthesis tasks. Audio lands in
// the configured bucket; completion is never polled.
type Speech struct {
	client       *polly.Client
	outputBucket string
}

func NewSpeech(cfg aws.Config, outputBucket string) *Speech {
	return &Speech{client: polly.NewFromConfig(cfg), outputBucket: outputBucket}
}

func (s *Speech) StartSynthesis(ctx context.Context, text, voice, outputPrefix string) (string, error) {
	out, err := s.client.StartSpeechSynthesisTask(ctx, &polly.StartSpeechSynthesisTaskInput{
		Text:               aws.String(text),
		VoiceId:            pollytypes.VoiceId(voice),
		OutputFormat:       pollytypes.OutputFormatMp3,
		OutputS3BucketName: aws.String(s.outputBucket),
		OutputS3KeyPrefix:  aws.String(outputPrefix),
	})
	if err != nil {
		return "", classify(err)
	}

	if out.SynthesisTask == nil {
		return "", execution.Permanent(fmt.Errorf("synthesis accepted but no task returned"))
	}

	return aws.ToString(out.SynthesisTask.TaskId), nil
}

// Store fetches objects from S3.
type Store struct {
	client *s3.Client
}

func NewStore(cfg aws.Config) *Store {
	return &Store{client: s3.NewFromConfig(cfg)}
}

func (s *Store) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, execution.Transient(fmt.Errorf("reading s3://%s/%s: %w", bucket, key, err))
	}

	return data, nil
}

// Services builds the full AWS-backed operation bundle from one config.
func Services(cfg aws.Config, transcriptBucket, transcriptPrefix string) operations.Services {
	return operations.Services{
		Transcription: NewTranscription(cfg, transcriptBucket, transcriptPrefix),
		Translation:   NewTranslation(cfg),
		Speech:        NewSpeech(cfg, transcriptBucket),
		Store:         NewStore(cfg),
	}
}
