// ABOUTME: Analyzer tools the critique agent may call.
// ABOUTME: Closed set of four sport formatters exposed as function-call capabilities.
package critic

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/suweiran/roast/internal/metrics"
	"github.com/suweiran/roast/internal/models"
)

// Tool is one callable capability the agent can invoke while reasoning.
type Tool struct {
	Name        string
	Description string
	Invoke      func(activityJSON string) string
}

// toolInput is the argument schema every analyzer shares.
type toolInput struct {
	ActivityJSON string `json:"activity_json"`
}

// parseActivityPayload decodes a tool's activity_json argument. Text that is
// not a JSON object is wrapped under a raw key so the summaries still have
// something to report on.
func parseActivityPayload(activityJSON string) map[string]any {
	var payload map[string]any
	if err := json.Unmarshal([]byte(activityJSON), &payload); err == nil && payload != nil {
		return payload
	}
	return map[string]any{"raw": activityJSON}
}

// logInvocation records which tool ran against which activity.
func logInvocation(w io.Writer, toolName string, a map[string]any) {
	id := a["id"]
	if id == nil {
		id = "unknown"
	}
	sport, _ := a["sport_type"].(string)
	if sport == "" {
		sport, _ = a["type"].(string)
	}
	if sport == "" {
		sport = "未知类型"
	}
	fmt.Fprintf(w, "[AgentTool] %s 输入活动 %v｜%s\n", toolName, id, sport)
}

// analyzerTools is the closed list of sport analyzers, logging to w.
func analyzerTools(w io.Writer) []Tool {
	analyzer := func(name, description string, sport models.SportType) Tool {
		return Tool{
			Name:        name,
			Description: description,
			Invoke: func(activityJSON string) string {
				activity := parseActivityPayload(activityJSON)
				logInvocation(w, name, activity)
				return metrics.Summarize(sport, activity)
			},
		}
	}
	return []Tool{
		analyzer(
			"analyze_running_activity",
			"根据 Strava 活动 JSON 提供跑步指标，帮助你判断配速、心率、爬升情况。",
			models.SportRun,
		),
		analyzer(
			"analyze_cycling_activity",
			"根据 Strava 活动 JSON 提供骑行指标，关注速度、功率、踏频和爬升。",
			models.SportRide,
		),
		analyzer(
			"analyze_swimming_activity",
			"根据 Strava 活动 JSON 提供游泳指标，关注配速、速度和心率。",
			models.SportSwim,
		),
		analyzer(
			"inspect_general_activity",
			"当运动类型未知或为通用健身追踪时，给出全面的指标摘要。",
			models.SportGeneric,
		),
	}
}
