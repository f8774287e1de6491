// ABOUTME: CLI command for the fetch stage alone.
// ABOUTME: Pulls recent activities and writes them to the activities file.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/suweiran/roast/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "抓取最新的 Strava 活动",
	Long: `读取 token 目录中最新的 token JSON（必要时自动刷新），
抓取最近的活动并写入活动文件。

Examples:
  roast fetch
  roast fetch --per-page 5
  roast fetch --output my_activities.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipelineOptions()
		opts.SkipGenerate = true
		opts.SkipUpload = true

		p := pipeline.New(opts, stravaClient(), nil, os.Stdout)
		return p.Run(cmd.Context())
	},
}

func init() {
	fetchCmd.Flags().IntVar(&runPerPage, "per-page", 1, "要请求的活动数量")
	fetchCmd.Flags().StringVar(&runTokenFile, "token-file", "", "指定 token JSON 文件路径")
	fetchCmd.Flags().StringVar(&runActivitiesFile, "output", "", "活动写入的文件路径")
	rootCmd.AddCommand(fetchCmd)
}
