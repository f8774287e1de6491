// ABOUTME: MCP tool implementations for activity analysis and critique lookup.
// ABOUTME: Exposes the four sport analyzers plus critique-store queries.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/suweiran/roast/internal/critic"
	"github.com/suweiran/roast/internal/metrics"
	"github.com/suweiran/roast/internal/models"
)

func (s *Server) registerTools() {
	// analyze_running_activity
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "analyze_running_activity",
		Description: "根据 Strava 活动 JSON 提供跑步指标（配速、心率、爬升）",
	}, s.analyzeHandler(models.SportRun))

	// analyze_cycling_activity
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "analyze_cycling_activity",
		Description: "根据 Strava 活动 JSON 提供骑行指标（速度、功率、踏频、爬升）",
	}, s.analyzeHandler(models.SportRide))

	// analyze_swimming_activity
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "analyze_swimming_activity",
		Description: "根据 Strava 活动 JSON 提供游泳指标（配速、速度、心率）",
	}, s.analyzeHandler(models.SportSwim))

	// inspect_general_activity
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "inspect_general_activity",
		Description: "当运动类型未知时给出全面的指标摘要",
	}, s.analyzeHandler(models.SportGeneric))

	// list_pending_critiques
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_pending_critiques",
		Description: "列出尚未上传的活动点评",
	}, s.handleListPending)

	// get_critique
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_critique",
		Description: "按活动 id 查询已生成的点评",
	}, s.handleGetCritique)
}

// Tool input/output types

type analyzeInput struct {
	ActivityJSON string `json:"activity_json" jsonschema:"description=完整的 Strava 活动 JSON 字符串,required"`
}

type analyzeOutput struct {
	Summary string `json:"summary"`
}

type listPendingInput struct{}

type pendingCritique struct {
	ActivityID string `json:"activity_id"`
	Critique   string `json:"critique"`
}

type listPendingOutput struct {
	Pending []pendingCritique `json:"pending"`
	Message string            `json:"message"`
}

type getCritiqueInput struct {
	ActivityID string `json:"activity_id" jsonschema:"description=Strava 活动 id,required"`
}

type critiqueOutput struct {
	ActivityID         string `json:"activity_id"`
	Critique           string `json:"critique"`
	Uploaded           bool   `json:"uploaded"`
	UpdatedDescription string `json:"updated_description,omitempty"`
	UploadedAt         string `json:"uploaded_at,omitempty"`
}

// Tool handlers

func (s *Server) analyzeHandler(sport models.SportType) func(context.Context, *mcp.CallToolRequest, analyzeInput) (*mcp.CallToolResult, analyzeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input analyzeInput) (*mcp.CallToolResult, analyzeOutput, error) {
		payload := map[string]any{"raw": input.ActivityJSON}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(input.ActivityJSON), &parsed); err == nil && parsed != nil {
			payload = parsed
		}
		return nil, analyzeOutput{Summary: metrics.Summarize(sport, payload)}, nil
	}
}

func (s *Server) handleListPending(ctx context.Context, req *mcp.CallToolRequest, input listPendingInput) (*mcp.CallToolResult, listPendingOutput, error) {
	store, err := critic.LoadStore(s.critiquesFile)
	if err != nil {
		return nil, listPendingOutput{}, err
	}
	items := store.Pending()
	out := listPendingOutput{Message: fmt.Sprintf("共 %d 条待上传点评", len(items))}
	for _, item := range items {
		out.Pending = append(out.Pending, pendingCritique{
			ActivityID: item.ID,
			Critique:   item.Entry.Critique,
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetCritique(ctx context.Context, req *mcp.CallToolRequest, input getCritiqueInput) (*mcp.CallToolResult, critiqueOutput, error) {
	store, err := critic.LoadStore(s.critiquesFile)
	if err != nil {
		return nil, critiqueOutput{}, err
	}
	entry, ok := store.Get(input.ActivityID)
	if !ok {
		return nil, critiqueOutput{}, fmt.Errorf("没有找到活动 %s 的点评", input.ActivityID)
	}
	return nil, critiqueOutput{
		ActivityID:         input.ActivityID,
		Critique:           entry.Critique,
		Uploaded:           entry.Uploaded,
		UpdatedDescription: entry.UpdatedDescription,
		UploadedAt:         entry.UploadedAt,
	}, nil
}
