// ABOUTME: Prompt assembly for activity critiques.
// ABOUTME: External instruction template plus the activity JSON, agent system prompt default.
package critic

import (
	"fmt"
	"os"
	"strings"

	"github.com/suweiran/roast/internal/models"
)

// DefaultAgentPrompt steers the agent: read the activity JSON, pick the
// right analyzer tool, and quote its numbers in the critique.
const DefaultAgentPrompt = "你是运动锐评助理。请先阅读提供的 Strava 活动 JSON，辨别运动类型，" +
	"必要时调用相应工具获取指标，再给出有趣又犀利的中文点评。点评里要引用工具返回的关键数据。"

// LoadInstruction reads the critique instruction template. A missing or
// empty template is a configuration error, not something to paper over.
func LoadInstruction(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("缺少点评提示词模板 %s: %w", path, err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("点评提示词模板 %s 为空", path)
	}
	return content, nil
}

// BuildPrompt concatenates the instruction with the activity's formatted JSON.
func BuildPrompt(instruction string, activity *models.Activity) string {
	return instruction + "\n\n活动 JSON:\n" + activity.IndentedJSON()
}
