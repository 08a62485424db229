package pipeline

import (
	"time"

	"github.com/voxflow/voxflow/pkg/condition"
	"github.com/voxflow/voxflow/pkg/inputmap"
	"github.com/voxflow/voxflow/pkg/operations"
	"github.com/voxflow/voxflow/pkg/states"
)

// GraphName identifies the media-translation pipeline graph.
const GraphName = "media-translation"

// State names of the pipeline graph.
const (
	StateStartTranscription = "StartTranscription"
	StateAwaitTranscription = "AwaitTranscription"
	StateCheckTranscription = "CheckTranscription"
	StateRouteTranscription = "RouteTranscription"
	StateTranscriptionFault = "TranscriptionFailed"
	StateFetchTranscript    = "FetchTranscript"
	StateRouteLanguage      = "RouteLanguage"
	StateAdoptTranscript    = "AdoptTranscript"
	StateTranslate          = "TranslateTranscript"
	StateSynthesize         = "SynthesizeSpeech"
	StateCompleted          = "Completed"
)

// jobName derives the transcription job name from the execution ID, so a
// retried submission reuses the same remote job.
func jobName() inputmap.Value {
	return inputmap.Format{
		Template: "transcription-{}",
		Args:     []inputmap.Value{inputmap.ExecutionRef{Field: "id"}},
	}
}

// Graph builds the media-translation state graph: transcribe, poll until the
// job settles, branch on detected language, translate when needed, then
// submit speech synthesis and finish. Synthesis is submit-only.
func Graph(cfg Config) *states.Graph {
	return &states.Graph{
		Name:    GraphName,
		StartAt: StateStartTranscription,
		States: map[string]states.State{
			StateStartTranscription: states.Task{
				StateName: StateStartTranscription,
				Operation: operations.OpStartTranscriptionJob,
				Input: inputmap.Mapping{
					"jobName": jobName(),
					"mediaUri": inputmap.Format{
						Template: "s3://{}/{}",
						Args: []inputmap.Value{
							inputmap.Path{Path: "$.detail.bucket.name"},
							inputmap.Path{Path: "$.detail.object.key"},
						},
					},
					"identifyLanguage": inputmap.Literal{Value: true},
				},
				OutputPath: "$.job",
				Next:       StateAwaitTranscription,
			},

			StateAwaitTranscription: states.Wait{
				StateName: StateAwaitTranscription,
				Duration:  time.Duration(cfg.PollInterval),
				Next:      StateCheckTranscription,
			},

			StateCheckTranscription: states.Task{
				StateName:  StateCheckTranscription,
				Operation:  operations.OpGetTranscriptionJobStatus,
				Input:      inputmap.Mapping{"jobName": jobName()},
				OutputPath: "$.job",
				Next:       StateRouteTranscription,
			},

			StateRouteTranscription: states.Choice{
				StateName: StateRouteTranscription,
				Rules: []states.ChoiceRule{
					{
						When: condition.StringEquals{Path: "$.job.status", Value: operations.JobStatusCompleted},
						Next: StateFetchTranscript,
					},
					{
						When: condition.StringEquals{Path: "$.job.status", Value: operations.JobStatusFailed},
						Next: StateTranscriptionFault,
					},
				},
				Default: StateAwaitTranscription,
			},

			StateTranscriptionFault: states.Fail{
				StateName: StateTranscriptionFault,
				Reason:    "transcription job failed",
			},

			StateFetchTranscript: states.Task{
				StateName: StateFetchTranscript,
				Operation: operations.OpFetchTranscript,
				Input: inputmap.Mapping{
					"transcriptUri": inputmap.Path{Path: "$.job.transcriptUri"},
				},
				OutputPath: "$.transcript",
				Next:       StateRouteLanguage,
			},

			StateRouteLanguage: states.Choice{
				StateName: StateRouteLanguage,
				Rules: []states.ChoiceRule{
					{
						// "en" also covers regional variants like "en-US".
						When: condition.StringMatches{Path: "$.job.languageCode", Pattern: cfg.TargetLanguage + "*"},
						Next: StateAdoptTranscript,
					},
				},
				Default: StateTranslate,
			},

			// Already in the target language: the transcript becomes the
			// translation as-is.
			StateAdoptTranscript: states.Pass{
				StateName: StateAdoptTranscript,
				CopyFrom:  "$.transcript.text",
				CopyTo:    "$.translation.text",
				Next:      StateSynthesize,
			},

			StateTranslate: states.Task{
				StateName: StateTranslate,
				Operation: operations.OpTranslateText,
				Input: inputmap.Mapping{
					"text":           inputmap.Path{Path: "$.transcript.text"},
					"sourceLanguage": inputmap.Path{Path: "$.job.languageCode"},
					"targetLanguage": inputmap.Literal{Value: cfg.TargetLanguage},
				},
				OutputPath: "$.translation",
				Next:       StateSynthesize,
			},

			StateSynthesize: states.Task{
				StateName: StateSynthesize,
				Operation: operations.OpSynthesizeSpeech,
				Input: inputmap.Mapping{
					"text":         inputmap.Path{Path: "$.translation.text"},
					"voice":        inputmap.Literal{Value: cfg.Voice},
					"outputPrefix": inputmap.Literal{Value: cfg.OutputPrefix},
				},
				OutputPath: "$.speech",
				Next:       StateCompleted,
			},

			StateCompleted: states.Terminal{StateName: StateCompleted},
		},
	}
}

// Definition renders the graph as its JSON definition document.
func Definition(cfg Config) ([]byte, error) {
	return states.EncodeDefinition(Graph(cfg))
}
