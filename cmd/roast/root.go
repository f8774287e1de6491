// ABOUTME: Root Cobra command for roast CLI.
// ABOUTME: Loads .env and the runtime configuration in PersistentPreRunE.
package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/suweiran/roast/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "roast",
	Short: "抓取 Strava 活动并生成毒舌点评",
	Long: `Roast 抓取最新的 Strava 活动，让 LLM 生成毒舌点评，并把点评回写为活动描述。

PIPELINE:

  $ roast run                       # 抓取 → 生成 → 上传 一条龙
  $ roast run --dry-run             # 只预览将要写入的描述
  $ roast run --skip-fetch          # 复用本地活动文件
  $ roast fetch --per-page 5        # 只抓取最近 5 条活动
  $ roast generate                  # 只生成点评
  $ roast upload --max-count 1      # 只上传，每次最多 1 条

授权:

  $ roast auth serve                # 启动本地 OAuth 回调服务
  然后在浏览器打开 http://127.0.0.1:5000/login 完成 Strava 授权，
  token 会写入 user_token/strava_token_<时间戳>.json。

配置:

  环境变量（可放在 .env 中）：
    ONE_API_KEY / OPENAI_API_KEY    LLM API Key
    ONE_API_MODEL                   模型名称（默认 gpt-3.5-turbo）
    ONE_API_REMOTE                  LLM 接口地址
    LLM_ACTIVITY_AGENT_PROMPT       Agent 系统提示词
    STRAVA_CLIENT_ID/SECRET         Strava OAuth 应用凭据
    ROAST_PROMPT_TEMPLATE           点评指令模板路径

MCP:

  运行 'roast mcp' 启动 Model Context Protocol 服务，
  让 Claude Desktop 等助手直接调用运动分析工具和点评查询。`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; the environment may be set elsewhere.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		return err
	},
}
