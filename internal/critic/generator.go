// ABOUTME: Critique generator driving an LLM agent loop with analyzer tools.
// ABOUTME: One prompt per activity, bounded tool-call turns, non-empty text or failure.
package critic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/suweiran/roast/internal/models"
)

// maxAgentTurns bounds how many completion rounds one critique may take.
const maxAgentTurns = 6

// GenerationError reports that the model failed to produce usable critique
// text for a single activity. The caller logs it and moves on.
type GenerationError struct {
	ActivityID string
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("生成活动 %s 的点评失败: %v", e.ActivityID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// GeneratorConfig carries the runtime LLM settings; nothing is compiled in.
type GeneratorConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	SystemPrompt string
	Instruction  string
	// Log receives tool-invocation lines; defaults to stdout.
	Log io.Writer
}

// Generator produces critiques for activities through an agent loop that may
// call the sport analyzers before answering.
type Generator struct {
	client       *openai.Client
	model        string
	systemPrompt string
	instruction  string
	tools        []Tool
}

// NewGenerator wires a Generator from runtime configuration.
func NewGenerator(cfg GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultAgentPrompt
	}
	logW := cfg.Log
	if logW == nil {
		logW = os.Stdout
	}
	return &Generator{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		systemPrompt: systemPrompt,
		instruction:  cfg.Instruction,
		tools:        analyzerTools(logW),
	}
}

// toolDefinitions renders the closed analyzer set as function-call schemas.
func (g *Generator) toolDefinitions() []openai.Tool {
	defs := make([]openai.Tool, 0, len(g.tools))
	for _, t := range g.tools {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"activity_json": {
							Type:        jsonschema.String,
							Description: "完整的 Strava 活动 JSON 字符串",
						},
					},
					Required: []string{"activity_json"},
				},
			},
		})
	}
	return defs
}

// dispatch runs the named tool, reporting unknown names back to the model
// instead of aborting the loop.
func (g *Generator) dispatch(name, arguments string) string {
	var input toolInput
	if err := json.Unmarshal([]byte(arguments), &input); err != nil {
		return fmt.Sprintf("工具参数解析失败: %v", err)
	}
	for _, t := range g.tools {
		if t.Name == name {
			return t.Invoke(input.ActivityJSON)
		}
	}
	return "未知工具: " + name
}

// Critique asks the agent for a critique of one activity.
func (g *Generator) Critique(ctx context.Context, activity *models.Activity) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(g.instruction, activity)},
	}

	for turn := 0; turn < maxAgentTurns; turn++ {
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    g.model,
			Messages: messages,
			Tools:    g.toolDefinitions(),
		})
		if err != nil {
			return "", &GenerationError{ActivityID: activity.IDString(), Err: err}
		}
		if len(resp.Choices) == 0 {
			return "", &GenerationError{ActivityID: activity.IDString(), Err: fmt.Errorf("模型没有返回任何候选")}
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			critique := strings.TrimSpace(msg.Content)
			if critique == "" {
				return "", &GenerationError{ActivityID: activity.IDString(), Err: fmt.Errorf("模型返回了空点评")}
			}
			return critique, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    g.dispatch(call.Function.Name, call.Function.Arguments),
			})
		}
	}
	return "", &GenerationError{ActivityID: activity.IDString(), Err: fmt.Errorf("超过最大工具调用轮数 %d", maxAgentTurns)}
}
