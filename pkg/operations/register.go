package operations

import (
	"context"
	"fmt"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/invoker"
)

// Operation names under which the services are registered.
const (
	OpStartTranscriptionJob     = "startTranscriptionJob"
	OpGetTranscriptionJobStatus = "getTranscriptionJobStatus"
	OpFetchTranscript           = "fetchTranscript"
	OpTranslateText             = "translateText"
	OpSynthesizeSpeech          = "synthesizeSpeech"
)

// Services bundles the capability handles a pipeline needs.
type Services struct {
	Transcription TranscriptionService
	Translation   TranslationService
	Speech        SpeechService
	Store         ObjectStore
}

// Register binds the standard operations onto the invoker.
func Register(inv *invoker.Invoker, services Services) {
	inv.Register(OpStartTranscriptionJob, startTranscriptionJob{services.Transcription})
	inv.Register(OpGetTranscriptionJobStatus, getTranscriptionJobStatus{services.Transcription})
	inv.Register(OpFetchTranscript, fetchTranscript{services.Store})
	inv.Register(OpTranslateText, translateText{services.Translation})
	inv.Register(OpSynthesizeSpeech, synthesizeSpeech{services.Speech})
}

func requireString(input map[string]any, name string) (string, error) {
	value, ok := input[name].(string)
	if !ok || value == "" {
		return "", execution.Definitional(fmt.Errorf("operation input %q is missing or not a string", name))
	}

	return value, nil
}

func jobInfoResult(info JobInfo) map[string]any {
	result := map[string]any{
		"jobName": info.JobName,
		"status":  info.Status,
	}

	if info.LanguageCode != "" {
		result["languageCode"] = info.LanguageCode
	}

	if info.TranscriptURI != "" {
		result["transcriptUri"] = info.TranscriptURI
	}

	if info.FailureReason != "" {
		result["failureReason"] = info.FailureReason
	}

	return result
}

type startTranscriptionJob struct {
	svc TranscriptionService
}

func (o startTranscriptionJob) Execute(ctx context.Context, input map[string]any) (any, error) {
	jobName, err := requireString(input, "jobName")
	if err != nil {
		return nil, err
	}

	mediaURI, err := requireString(input, "mediaUri")
	if err != nil {
		return nil, err
	}

	identify := true
	if v, ok := input["identifyLanguage"].(bool); ok {
		identify = v
	}

	info, err := o.svc.StartJob(ctx, jobName, mediaURI, identify)
	if err != nil {
		return nil, err
	}

	return jobInfoResult(info), nil
}

type getTranscriptionJobStatus struct {
	svc TranscriptionService
}

func (o getTranscriptionJobStatus) Execute(ctx context.Context, input map[string]any) (any, error) {
	jobName, err := requireString(input, "jobName")
	if err != nil {
		return nil, err
	}

	info, err := o.svc.JobStatus(ctx, jobName)
	if err != nil {
		return nil, err
	}

	return jobInfoResult(info), nil
}

type fetchTranscript struct {
	store ObjectStore
}

func (o fetchTranscript) Execute(ctx context.Context, input map[string]any) (any, error) {
	uri, err := requireString(input, "transcriptUri")
	if err != nil {
		return nil, err
	}

	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}

	data, err := o.store.Fetch(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	text, err := ParseTranscript(data)
	if err != nil {
		return nil, err
	}

	return map[string]any{"text": text}, nil
}

type translateText struct {
	svc TranslationService
}

func (o translateText) Execute(ctx context.Context, input map[string]any) (any, error) {
	text, err := requireString(input, "text")
	if err != nil {
		return nil, err
	}

	sourceLang, err := requireString(input, "sourceLanguage")
	if err != nil {
		return nil, err
	}

	targetLang, err := requireString(input, "targetLanguage")
	if err != nil {
		return nil, err
	}

	translated, err := o.svc.Translate(ctx, sourceLang, targetLang, text)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"text":           translated,
		"sourceLanguage": sourceLang,
		"targetLanguage": targetLang,
	}, nil
}

type synthesizeSpeech struct {
	svc SpeechService
}

func (o synthesizeSpeech) Execute(ctx context.Context, input map[string]any) (any, error) {
	text, err := requireString(input, "text")
	if err != nil {
		return nil, err
	}

	voice, err := requireString(input, "voice")
	if err != nil {
		return nil, err
	}

	outputPrefix, err := requireString(input, "outputPrefix")
	if err != nil {
		return nil, err
	}

	taskID, err := o.svc.StartSynthesis(ctx, text, voice, outputPrefix)
	if err != nil {
		return nil, err
	}

	return map[string]any{"taskId": taskID}, nil
}
