// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server for Claude integration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/suweiran/roast/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "启动 MCP 服务",
	Long: `启动 Model Context Protocol (MCP) 服务，通过 stdin/stdout 通信，
让 Claude Desktop 等 AI 助手调用运动分析工具和点评查询。

CLAUDE DESKTOP 配置:

  {
    "mcpServers": {
      "roast": {
        "command": "roast",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  analyze_running_activity   跑步指标摘要
  analyze_cycling_activity   骑行指标摘要
  analyze_swimming_activity  游泳指标摘要
  inspect_general_activity   通用指标摘要
  list_pending_critiques     列出待上传的点评
  get_critique               按活动 id 查询点评`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(cfg.CritiquesFile)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
