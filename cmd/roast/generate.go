// ABOUTME: CLI command for the generate stage alone.
// ABOUTME: Critiques activities from the local activities file.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/suweiran/roast/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "为本地活动生成毒舌点评",
	Long: `读取活动文件中的活动，逐条调用 LLM 生成点评并合并进点评文件。
已标记 uploaded 的活动默认跳过。

Examples:
  roast generate
  roast generate --regenerate-uploaded
  roast generate --model gpt-4o --base-url https://one.example.com/v1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipelineOptions()
		opts.SkipFetch = true
		opts.SkipUpload = true

		gen, err := buildGenerator()
		if err != nil {
			return err
		}
		p := pipeline.New(opts, stravaClient(), gen, os.Stdout)
		return p.Run(cmd.Context())
	},
}

func init() {
	generateCmd.Flags().StringVar(&runActivitiesFile, "activities-file", "", "活动 JSON 的存储路径")
	generateCmd.Flags().StringVar(&runCritiquesFile, "critiques-file", "", "点评 JSON 的存储路径")
	addLLMFlags(generateCmd)
	generateCmd.Flags().BoolVar(&runRegenerate, "regenerate-uploaded", false, "强制重新生成已标记为 uploaded 的点评")
	rootCmd.AddCommand(generateCmd)
}
