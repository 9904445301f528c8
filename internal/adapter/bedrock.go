package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const contentTypeJSON = "application/json"

// Model invokes one Bedrock model through its family codec.
// A Model holds no mutable state; callers build one per request.
type Model struct {
	id        string
	family    Family
	codec     Codec
	maxTokens int
	rt        Runtime
	l         *zap.Logger
}

// New resolves modelID against reg. It fails with ErrUnsupportedModel before
// any network activity when the id is not registered.
func New(rt Runtime, reg *Registry, modelID string, maxTokens int, l *zap.Logger) (*Model, error) {
	family, ok := reg.Family(modelID)
	if !ok {
		return nil, fmt.Errorf("bedrock: %w: %s", ErrUnsupportedModel, modelID)
	}
	codec, ok := CodecFor(family)
	if !ok {
		return nil, fmt.Errorf("bedrock: %w: no codec for family %s", ErrUnsupportedModel, family)
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Model{
		id:        modelID,
		family:    family,
		codec:     codec,
		maxTokens: maxTokens,
		rt:        rt,
		l:         l,
	}, nil
}

func (m *Model) ID() string { return m.id }

func (m *Model) Family() Family { return m.family }

// Invoke sends prompt to the model and returns the generated text. An empty
// string with a nil error means the backend answered without content.
func (m *Model) Invoke(ctx context.Context, prompt string, temperature, topP float64) (string, error) {
	body, err := encodeBody(m.codec.Build(prompt, temperature, topP, m.maxTokens))
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := m.rt.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(m.id),
		Body:        body,
		Accept:      aws.String(contentTypeJSON),
		ContentType: aws.String(contentTypeJSON),
	})
	if err != nil {
		m.logFailure("Error invoking model", err)
		return "", fmt.Errorf("bedrock: invoke %s: %w", m.id, err)
	}

	text, err := m.codec.Extract(out.Body)
	if err != nil {
		m.logFailure("Error decoding model response", err)
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}
	return text, nil
}

func (m *Model) logFailure(msg string, err error) {
	fields := []zap.Field{
		zap.String("model_id", m.id),
		zap.Stringer("family", m.family),
		zap.Error(err),
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.String("error_code", apiErr.ErrorCode()))
	}
	m.l.Error(msg, fields...)
}

// Factory builds request-scoped Models from shared, concurrency-safe parts.
type Factory struct {
	Runtime   Runtime
	Registry  *Registry
	MaxTokens int
	Logger    *zap.Logger
}

func (f *Factory) New(modelID string) (*Model, error) {
	return New(f.Runtime, f.Registry, modelID, f.MaxTokens, f.Logger)
}

// NewBedrockRuntime builds the production inference client. endpoint, when
// set, overrides the regional endpoint (e.g. a VPC endpoint).
func NewBedrockRuntime(cfg aws.Config, endpoint string) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}
