// ABOUTME: CLI command for the upload stage alone.
// ABOUTME: Pushes pending critiques as activity descriptions.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/suweiran/roast/internal/pipeline"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "把待上传的点评同步为活动描述",
	Long: `读取点评文件中 uploaded=false 的条目，逐条调用 Strava API
更新活动描述；每成功一条立即保存点评文件。

Examples:
  roast upload
  roast upload --dry-run
  roast upload --max-count 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipelineOptions()
		opts.SkipFetch = true
		opts.SkipGenerate = true

		p := pipeline.New(opts, stravaClient(), nil, os.Stdout)
		return p.Run(cmd.Context())
	},
}

func init() {
	uploadCmd.Flags().StringVar(&runCritiquesFile, "critiques-file", "", "包含活动点评的 JSON 文件路径")
	uploadCmd.Flags().StringVar(&runTokenFile, "token-file", "", "指定 token JSON 文件（默认取 token 目录下最新的）")
	uploadCmd.Flags().IntVar(&runMaxUpload, "max-count", 0, "本次最多更新描述的活动数量，0 表示不限制")
	uploadCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "只打印将要更新的活动及描述，不真正调用 Strava API")
	rootCmd.AddCommand(uploadCmd)
}
