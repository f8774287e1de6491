// ABOUTME: CLI command running the full critique pipeline.
// ABOUTME: Shared builders wiring config and flag overrides into the stages.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/suweiran/roast/internal/critic"
	"github.com/suweiran/roast/internal/pipeline"
	"github.com/suweiran/roast/internal/strava"
)

var (
	runPerPage        int
	runActivitiesFile string
	runCritiquesFile  string
	runTokenFile      string
	runModel          string
	runBaseURL        string
	runAPIKey         string
	runSystemPrompt   string
	runMaxUpload      int
	runDryRun         bool
	runSkipFetch      bool
	runSkipGenerate   bool
	runSkipUpload     bool
	runRegenerate     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "抓取活动、生成点评并回写描述",
	Long: `抓取最新 Strava 活动，生成毒舌点评，并可选择自动回写 description。

三个阶段都可以单独跳过：

  roast run --skip-fetch        复用 activities 文件里的活动
  roast run --skip-generate     只执行上传阶段
  roast run --skip-upload       只抓取并生成点评
  roast run --dry-run           预览将要写入的描述，不真正调用写接口`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipelineOptions()
		opts.SkipFetch = runSkipFetch
		opts.SkipGenerate = runSkipGenerate
		opts.SkipUpload = runSkipUpload

		var gen pipeline.Generator
		if !opts.SkipGenerate {
			var err error
			gen, err = buildGenerator()
			if err != nil {
				return err
			}
		}
		p := pipeline.New(opts, stravaClient(), gen, os.Stdout)
		return p.Run(cmd.Context())
	},
}

// pipelineOptions merges config defaults with the shared run flags.
func pipelineOptions() pipeline.Options {
	opts := pipeline.Options{
		PerPage:            runPerPage,
		ActivitiesFile:     cfg.ActivitiesFile,
		CritiquesFile:      cfg.CritiquesFile,
		TokenFile:          runTokenFile,
		TokenDir:           cfg.TokenDir,
		MaxUpload:          runMaxUpload,
		DryRun:             runDryRun,
		RegenerateUploaded: runRegenerate,
	}
	if runActivitiesFile != "" {
		opts.ActivitiesFile = runActivitiesFile
	}
	if runCritiquesFile != "" {
		opts.CritiquesFile = runCritiquesFile
	}
	return opts
}

// stravaClient builds the API client from the OAuth application credentials.
func stravaClient() *strava.Client {
	return strava.NewClient(cfg.StravaClientID, cfg.StravaClientSecret)
}

// buildGenerator validates the LLM settings and loads the instruction
// template. Both are configuration errors when missing, caught before any
// network call.
func buildGenerator() (*critic.Generator, error) {
	if runAPIKey != "" {
		cfg.APIKey = runAPIKey
	}
	if runModel != "" {
		cfg.Model = runModel
	}
	if runBaseURL != "" {
		cfg.BaseURL = runBaseURL
	}
	if runSystemPrompt != "" {
		cfg.AgentPrompt = runSystemPrompt
	}
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	instruction, err := critic.LoadInstruction(cfg.PromptTemplate)
	if err != nil {
		return nil, err
	}
	return critic.NewGenerator(critic.GeneratorConfig{
		APIKey:       cfg.ResolvedAPIKey(),
		Model:        cfg.Model,
		BaseURL:      cfg.BaseURL,
		SystemPrompt: cfg.ResolvedAgentPrompt(),
		Instruction:  instruction,
	}), nil
}

// addLLMFlags binds the LLM override flags shared by run and generate.
func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runModel, "model", "", "覆盖 LLM 模型名称（默认读取 ONE_API_MODEL）")
	cmd.Flags().StringVar(&runBaseURL, "base-url", "", "覆盖 LLM 接口地址（默认读取 ONE_API_REMOTE）")
	cmd.Flags().StringVar(&runAPIKey, "api-key", "", "覆盖 LLM API Key（默认读取 ONE_API_KEY/OPENAI_API_KEY）")
	cmd.Flags().StringVar(&runSystemPrompt, "system-prompt", "", "覆盖 Agent 系统提示词")
}

func init() {
	runCmd.Flags().IntVar(&runPerPage, "per-page", 1, "调用活动 API 时请求的条数")
	runCmd.Flags().StringVar(&runActivitiesFile, "activities-file", "", "活动 JSON 的存储路径")
	runCmd.Flags().StringVar(&runCritiquesFile, "critiques-file", "", "点评 JSON 的存储路径")
	runCmd.Flags().StringVar(&runTokenFile, "token-file", "", "指定 token JSON 文件（默认取 token 目录下最新的）")
	addLLMFlags(runCmd)
	runCmd.Flags().IntVar(&runMaxUpload, "max-upload", 0, "本次最多上传多少条点评，0 表示不限制")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "仅展示将要写入的描述，不真正调用写接口")
	runCmd.Flags().BoolVar(&runSkipFetch, "skip-fetch", false, "跳过抓取活动，直接使用本地活动文件")
	runCmd.Flags().BoolVar(&runSkipGenerate, "skip-generate", false, "跳过生成点评，只执行上传阶段")
	runCmd.Flags().BoolVar(&runSkipUpload, "skip-upload", false, "跳过上传描述，只抓取并生成点评")
	runCmd.Flags().BoolVar(&runRegenerate, "regenerate-uploaded", false, "强制重新生成已标记为 uploaded 的点评")
	rootCmd.AddCommand(runCmd)
}
