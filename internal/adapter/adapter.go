package adapter

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// ErrUnsupportedModel is returned when a model id has no registered family.
var ErrUnsupportedModel = errors.New("unsupported model")

// Runtime is the inference boundary. *bedrockruntime.Client satisfies it.
type Runtime interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// ModelInfo is exposed via GET /api/models and the submission form.
type ModelInfo struct {
	ID       string `json:"id"`
	Family   string `json:"family"`
	Provider string `json:"provider"`
}
