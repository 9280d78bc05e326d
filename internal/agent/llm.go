package agent

import (
	"context"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"taskflow-backend/internal/store"
	"taskflow-backend/internal/types"
)

// IntentSpec is the YAML prompt definition for the LLM fallback classifier.
type IntentSpec struct {
	System string   `yaml:"system"`
	Labels []string `yaml:"labels"`
	Style  struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

// LLMClassifier asks a chat model to label messages the rule ladder left
// UNKNOWN. It is strictly optional: any failure, timeout, or unexpected
// output yields IntentUnknown and the pipeline proceeds as if it were never
// consulted.
type LLMClassifier struct {
	spec   IntentSpec
	client *openai.Client
	model  string
	log    *zap.Logger
}

func LoadLLMClassifier(path string, client *openai.Client, model string, log *zap.Logger) (*LLMClassifier, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec IntentSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, err
	}
	return &LLMClassifier{spec: spec, client: client, model: model, log: log}, nil
}

var labelIntents = map[string]Intent{
	"CREATE":         IntentCreate,
	"READ":           IntentRead,
	"UPDATE":         IntentUpdate,
	"COMPLETE":       IntentComplete,
	"DELETE":         IntentDelete,
	"CONVERSATIONAL": IntentConversational,
	"HELP":           IntentHelp,
}

// Classify embeds the recent transcript into a single system message so role
// ambiguity cannot confuse the model, then maps the returned label onto the
// intent set.
func (c *LLMClassifier) Classify(ctx context.Context, history []store.Message, message string) Intent {
	var b strings.Builder
	b.WriteString(c.spec.System)
	b.WriteString("\n\nLabels: ")
	b.WriteString(strings.Join(c.spec.Labels, ", "))
	b.WriteString("\n\nTranscript (role: content):\n")
	for _, m := range history {
		role := "USER"
		if m.Role == types.RoleAgent {
			role = "ASSISTANT"
		}
		content := strings.TrimSpace(m.Content)
		content = strings.ReplaceAll(content, "\n\n", "\n")
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(content)
		b.WriteString("\n")
	}
	b.WriteString("\nClassify the last USER message. Output ONLY the label.\n")

	temp := c.spec.Style.Temperature
	if temp <= 0 {
		temp = 0.1
	}
	maxTok := c.spec.Style.MaxTokens
	if maxTok <= 0 {
		maxTok = 10
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temp,
		MaxTokens:   maxTok,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: b.String()},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		c.log.Warn("llm classification failed", zap.Error(err))
		return IntentUnknown
	}
	if len(resp.Choices) == 0 {
		return IntentUnknown
	}
	label := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	label = strings.Trim(label, `"'.`)
	if intent, ok := labelIntents[label]; ok {
		return intent
	}
	c.log.Warn("llm returned unrecognized label", zap.String("label", label))
	return IntentUnknown
}
