package cmd

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/voxflow/voxflow/pkg/operations"
	"github.com/voxflow/voxflow/pkg/operations/awscloud"
	"github.com/voxflow/voxflow/pkg/operations/memory"
	"github.com/voxflow/voxflow/pkg/pipeline"
)

// NewServices builds the operation services. Dry runs get scripted
// in-memory services; otherwise the AWS-backed ones are constructed from
// the ambient credential chain.
func NewServices(ctx context.Context, cfg pipeline.Config, dryRun bool) (operations.Services, error) {
	if dryRun {
		return DryRunServices(), nil
	}

	if cfg.OutputBucket == "" {
		return operations.Services{}, fmt.Errorf("output_bucket must be configured for cloud-backed runs")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return operations.Services{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return awscloud.Services(awsCfg, cfg.OutputBucket, "transcripts/"), nil
}

// DryRunServices returns in-memory services scripted to complete one poll
// cycle with an already-translated transcript available.
func DryRunServices() operations.Services {
	store := &memory.Store{}
	store.Put("voxflow-dry-run", "transcripts/sample.json",
		memory.TranscriptDocument("hola, esto es una prueba"))

	return operations.Services{
		Transcription: &memory.Transcription{
			Statuses: []string{
				operations.JobStatusInProgress,
				operations.JobStatusCompleted,
			},
			LanguageCode:  "es-ES",
			TranscriptURI: "s3://voxflow-dry-run/transcripts/sample.json",
		},
		Translation: &memory.Translation{},
		Speech:      &memory.Speech{},
		Store:       store,
	}
}
