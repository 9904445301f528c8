package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Family identifies a Bedrock request/response wire shape.
type Family int

const (
	FamilyUnknown Family = iota
	// FamilyClaudeText is the legacy Anthropic text completion shape.
	FamilyClaudeText
	// FamilyClaudeMessages is the Anthropic Messages API shape.
	FamilyClaudeMessages
	// FamilyTitanText is the Amazon Titan text generation shape.
	FamilyTitanText
)

const anthropicVersion = "bedrock-2023-05-31"

var familyNames = map[Family]string{
	FamilyClaudeText:     "claude-text",
	FamilyClaudeMessages: "claude-messages",
	FamilyTitanText:      "titan-text",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// Provider returns the vendor that publishes models of this family.
func (f Family) Provider() string {
	switch f {
	case FamilyClaudeText, FamilyClaudeMessages:
		return "anthropic"
	case FamilyTitanText:
		return "amazon"
	default:
		return ""
	}
}

// ParseFamily maps a config name such as "titan-text" to its Family.
func ParseFamily(name string) (Family, error) {
	for f, n := range familyNames {
		if n == name {
			return f, nil
		}
	}
	return FamilyUnknown, fmt.Errorf("unknown model family %q", name)
}

// Codec holds the two pure functions that translate between the generic
// invocation tuple and one family's wire format.
type Codec struct {
	Build   func(prompt string, temperature, topP float64, maxTokens int) any
	Extract func(body []byte) (string, error)
}

var codecs = map[Family]Codec{
	FamilyClaudeText:     {Build: buildClaudeText, Extract: extractClaudeText},
	FamilyClaudeMessages: {Build: buildClaudeMessages, Extract: extractClaudeMessages},
	FamilyTitanText:      {Build: buildTitanText, Extract: extractTitanText},
}

// CodecFor returns the codec for f.
func CodecFor(f Family) (Codec, bool) {
	c, ok := codecs[f]
	return c, ok
}

type claudeTextRequest struct {
	Prompt            string  `json:"prompt"`
	MaxTokensToSample int     `json:"max_tokens_to_sample"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
}

type claudeTextResponse struct {
	Completion string `json:"completion"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeMessagesRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	Messages         []claudeMessage `json:"messages"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	TopP             float64         `json:"top_p"`
}

type claudeContentBlock struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

type claudeMessagesResponse struct {
	Content []claudeContentBlock `json:"content"`
}

type titanGenerationConfig struct {
	MaxTokenCount int      `json:"maxTokenCount"`
	StopSequences []string `json:"stopSequences"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"topP"`
}

type titanTextRequest struct {
	InputText            string                `json:"inputText"`
	TextGenerationConfig titanGenerationConfig `json:"textGenerationConfig"`
}

type titanResult struct {
	OutputText string `json:"outputText"`
}

type titanTextResponse struct {
	Results []titanResult `json:"results"`
}

func buildClaudeText(prompt string, temperature, topP float64, maxTokens int) any {
	return claudeTextRequest{
		Prompt:            "\n\nHuman: " + prompt + "\n\nAssistant:",
		MaxTokensToSample: maxTokens,
		Temperature:       temperature,
		TopP:              topP,
	}
}

func buildClaudeMessages(prompt string, temperature, topP float64, maxTokens int) any {
	return claudeMessagesRequest{
		AnthropicVersion: anthropicVersion,
		Messages:         []claudeMessage{{Role: "user", Content: prompt}},
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		TopP:             topP,
	}
}

func buildTitanText(prompt string, temperature, topP float64, maxTokens int) any {
	return titanTextRequest{
		InputText: "User: " + prompt + " \nBot",
		TextGenerationConfig: titanGenerationConfig{
			MaxTokenCount: maxTokens,
			StopSequences: []string{},
			Temperature:   temperature,
			TopP:          topP,
		},
	}
}

func extractClaudeText(body []byte) (string, error) {
	var resp claudeTextResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	return resp.Completion, nil
}

func extractClaudeMessages(body []byte) (string, error) {
	var resp claudeMessagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", nil
	}
	return resp.Content[0].Text, nil
}

func extractTitanText(body []byte) (string, error) {
	var resp titanTextResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].OutputText, nil
}

// encodeBody serializes a payload without HTML escaping so prompts reach the
// backend byte for byte.
func encodeBody(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
