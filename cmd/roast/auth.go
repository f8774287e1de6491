// ABOUTME: CLI commands for the local OAuth helper.
// ABOUTME: Serves the login/callback endpoints that mint token files.
package main

import (
	"fmt"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/suweiran/roast/internal/authserver"
	"github.com/suweiran/roast/internal/strava"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Strava OAuth 授权辅助",
	Long: `本地 OAuth 辅助服务，用于获取 Strava token。

流程：

  1. 在 Strava 开发者后台创建应用，把 client id/secret 写入 .env：
     STRAVA_CLIENT_ID=...
     STRAVA_CLIENT_SECRET=...

  2. 启动回调服务：
     roast auth serve

  3. 浏览器打开 http://127.0.0.1:5000/login?scope=activity:read,activity:write
     完成授权后 token 会写入 token 目录，/profile 页面可以看到 JSON。`,
}

var authServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动本地 OAuth 回调服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireOAuth(); err != nil {
			return err
		}

		server := authserver.New(
			strava.NewClient(cfg.StravaClientID, cfg.StravaClientSecret),
			cfg.StravaRedirectURI,
			cfg.TokenDir,
		)

		color.Green("✓ OAuth 回调服务监听 %s", cfg.AuthListenAddr)
		fmt.Printf("  在浏览器打开 http://%s/login 开始授权\n", cfg.AuthListenAddr)
		return http.ListenAndServe(cfg.AuthListenAddr, server.Handler())
	},
}

func init() {
	authCmd.AddCommand(authServeCmd)
	rootCmd.AddCommand(authCmd)
}
