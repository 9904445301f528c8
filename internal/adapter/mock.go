package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// MockRuntime answers InvokeModel with a well-formed response for the
// requested model's family, echoing the prompt with its first letter
// capitalized. Used for development and testing without AWS credentials.
type MockRuntime struct {
	Registry *Registry
	Delay    time.Duration

	calls atomic.Int64
}

// Calls reports how many InvokeModel calls reached the mock.
func (m *MockRuntime) Calls() int64 { return m.calls.Load() }

func (m *MockRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	m.calls.Add(1)

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("mock: %w", ctx.Err())
		}
	}

	modelID := aws.ToString(params.ModelId)
	family, ok := m.Registry.Family(modelID)
	if !ok {
		return nil, fmt.Errorf("mock: model %s not found", modelID)
	}

	body, err := mockReply(family, params.Body)
	if err != nil {
		return nil, fmt.Errorf("mock: %w", err)
	}
	return &bedrockruntime.InvokeModelOutput{
		Body:        body,
		ContentType: aws.String(contentTypeJSON),
	}, nil
}

func mockReply(family Family, body []byte) ([]byte, error) {
	switch family {
	case FamilyClaudeText:
		var req claudeTextRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		prompt := strings.TrimSuffix(strings.TrimPrefix(req.Prompt, "\n\nHuman: "), "\n\nAssistant:")
		return json.Marshal(claudeTextResponse{Completion: polish(prompt)})
	case FamilyClaudeMessages:
		var req claudeMessagesRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		if len(req.Messages) == 0 {
			return json.Marshal(claudeMessagesResponse{Content: []claudeContentBlock{}})
		}
		return json.Marshal(claudeMessagesResponse{
			Content: []claudeContentBlock{{Type: "text", Text: polish(req.Messages[0].Content)}},
		})
	case FamilyTitanText:
		var req titanTextRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		prompt := strings.TrimSuffix(strings.TrimPrefix(req.InputText, "User: "), " \nBot")
		return json.Marshal(titanTextResponse{Results: []titanResult{{OutputText: polish(prompt)}}})
	default:
		return nil, fmt.Errorf("no reply shape for family %s", family)
	}
}

func polish(text string) string {
	out := strings.TrimSpace(text)
	if len(out) > 0 && out[0] >= 'a' && out[0] <= 'z' {
		out = strings.ToUpper(out[:1]) + out[1:]
	}
	return out
}
