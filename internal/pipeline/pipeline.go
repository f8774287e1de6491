// ABOUTME: Orchestrator sequencing the fetch, generate, and upload stages.
// ABOUTME: Each stage is skippable; per-item failures never abort a batch.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/suweiran/roast/internal/critic"
	"github.com/suweiran/roast/internal/models"
	"github.com/suweiran/roast/internal/strava"
)

// API is the slice of the Strava client the pipeline drives. Narrowed to an
// interface so stage behavior is testable without a network.
type API interface {
	RefreshToken(ctx context.Context, refreshToken string) (*strava.Token, error)
	FetchActivities(ctx context.Context, accessToken string, perPage int) ([]models.Activity, error)
	UpdateDescription(ctx context.Context, accessToken, activityID, description string) (map[string]any, error)
}

// Generator produces one critique per activity.
type Generator interface {
	Critique(ctx context.Context, activity *models.Activity) (string, error)
}

// Options controls which stages run and where their files live.
type Options struct {
	PerPage        int
	ActivitiesFile string
	CritiquesFile  string
	// TokenFile pins a specific token file; empty means latest in TokenDir.
	TokenFile string
	TokenDir  string
	// MaxUpload caps how many pending critiques one run uploads; 0 means no cap.
	MaxUpload          int
	DryRun             bool
	SkipFetch          bool
	SkipGenerate       bool
	SkipUpload         bool
	RegenerateUploaded bool
}

// Pipeline runs the critique workflow end to end.
type Pipeline struct {
	opts Options
	api  API
	gen  Generator
	out  io.Writer
	now  func() time.Time
}

// New builds a Pipeline. gen may be nil when the generate stage is skipped.
func New(opts Options, api API, gen Generator, out io.Writer) *Pipeline {
	if out == nil {
		out = os.Stdout
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 1
	}
	return &Pipeline{opts: opts, api: api, gen: gen, out: out, now: time.Now}
}

// EnsureAccessToken loads the token payload, refreshes it when it is within
// a minute of expiry, and persists the refreshed payload before returning.
func (p *Pipeline) EnsureAccessToken(ctx context.Context) (string, error) {
	path := p.opts.TokenFile
	if path == "" {
		var err error
		path, err = strava.LatestTokenFile(p.opts.TokenDir)
		if err != nil {
			return "", err
		}
	}
	token, err := strava.LoadToken(path)
	if err != nil {
		return "", err
	}
	if token.NeedsRefresh(p.now()) {
		fmt.Fprintln(p.out, "access token 将过期，尝试刷新...")
		refreshed, err := p.api.RefreshToken(ctx, token.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("刷新 token 失败: %w", err)
		}
		if err := strava.SaveToken(path, refreshed); err != nil {
			return "", fmt.Errorf("保存刷新后的 token 失败: %w", err)
		}
		token = refreshed
		fmt.Fprintln(p.out, "已刷新 access token。")
	}
	fmt.Fprintf(p.out, "使用 token 文件：%s\n", path)
	return token.AccessToken, nil
}

// Run sequences the stages. Failing to obtain a token when any networked
// stage needs one is fatal for the whole run.
func (p *Pipeline) Run(ctx context.Context) error {
	var accessToken string
	if !p.opts.SkipFetch || !p.opts.SkipUpload {
		var err error
		accessToken, err = p.EnsureAccessToken(ctx)
		if err != nil {
			return err
		}
	}

	var activities []models.Activity
	if p.opts.SkipFetch {
		if !p.opts.SkipGenerate {
			var err error
			activities, err = LoadActivities(p.opts.ActivitiesFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(p.out, "跳过抓取，使用 %s 中的 %d 条活动。\n", p.opts.ActivitiesFile, len(activities))
		}
	} else {
		var err error
		activities, err = p.Fetch(ctx, accessToken)
		if err != nil {
			return err
		}
	}

	var store *critic.Store
	if p.opts.SkipGenerate {
		if p.opts.SkipUpload {
			return nil
		}
		// Upload-only runs have nothing to fall back on; a missing store
		// file means the generate stage never ran.
		if _, err := os.Stat(p.opts.CritiquesFile); err != nil {
			return fmt.Errorf("未找到点评文件 %s，请先运行 generate 阶段", p.opts.CritiquesFile)
		}
		var err error
		store, err = critic.LoadStore(p.opts.CritiquesFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(p.out, "跳过生成，直接从 %s 读取 %d 条点评。\n", p.opts.CritiquesFile, store.Len())
	} else {
		var err error
		store, err = p.Generate(ctx, activities)
		if err != nil {
			return err
		}
	}

	if p.opts.SkipUpload {
		fmt.Fprintln(p.out, "跳过上传，流程结束。")
		return nil
	}
	_, err := p.Upload(ctx, accessToken, store)
	return err
}

// Fetch pulls recent activities and writes them to the activities file.
func (p *Pipeline) Fetch(ctx context.Context, accessToken string) ([]models.Activity, error) {
	activities, err := p.api.FetchActivities(ctx, accessToken, p.opts.PerPage)
	if err != nil {
		return nil, fmt.Errorf("获取活动失败：%w", err)
	}
	if err := SaveActivities(p.opts.ActivitiesFile, activities); err != nil {
		return nil, fmt.Errorf("写入活动文件失败: %w", err)
	}
	fmt.Fprintf(p.out, "已抓取 %d 条活动，写入 %s。\n", len(activities), p.opts.ActivitiesFile)
	return activities, nil
}

// sportDisplay names the activity's sport for log lines: the Chinese name of
// the recognized category, or the raw sport tag for everything else.
func sportDisplay(a *models.Activity) string {
	switch a.Sport() {
	case models.SportRun:
		return "跑步"
	case models.SportRide:
		return "骑行"
	case models.SportSwim:
		return "游泳"
	default:
		return a.SportLabel()
	}
}

// Generate walks the activities in fetch order, critiquing each one that is
// not already uploaded, and persists the merged store once at the end.
// A single activity's failure is logged and the loop continues.
func (p *Pipeline) Generate(ctx context.Context, activities []models.Activity) (*critic.Store, error) {
	if len(activities) == 0 {
		return nil, fmt.Errorf("活动列表为空，无法生成点评")
	}
	store, err := critic.LoadStore(p.opts.CritiquesFile)
	if err != nil {
		return nil, err
	}

	total := len(activities)
	for idx := range activities {
		activity := &activities[idx]
		id := activity.IDString()
		if entry, ok := store.Get(id); ok && entry.Uploaded {
			if !p.opts.RegenerateUploaded {
				fmt.Fprintf(p.out, "[%d/%d] 活动 %s 已上传点评，跳过生成。\n", idx+1, total, id)
				continue
			}
			fmt.Fprintf(p.out, "[%d/%d] 活动 %s 已上传点评，因 --regenerate-uploaded 重新生成。\n", idx+1, total, id)
		}

		fmt.Fprintf(p.out, "[%d/%d] 正在生成活动 %s（%s）的点评...\n", idx+1, total, id, sportDisplay(activity))
		critique, err := p.gen.Critique(ctx, activity)
		if err != nil {
			color.New(color.FgRed).Fprintf(p.out, "[失败] %v\n", err)
			continue
		}
		store.Set(id, &critic.Entry{Critique: critique})
		fmt.Fprintf(p.out, "[%d/%d] 已生成活动 %s 的点评。\n", idx+1, total, id)
	}

	if err := critic.SaveStore(p.opts.CritiquesFile, store); err != nil {
		return nil, fmt.Errorf("保存点评文件失败: %w", err)
	}
	fmt.Fprintf(p.out, "点评已保存至 %s。\n", p.opts.CritiquesFile)
	return store, nil
}

// Upload pushes pending critiques as activity descriptions. The store is
// persisted after every successful write so a later failure loses nothing.
func (p *Pipeline) Upload(ctx context.Context, accessToken string, store *critic.Store) (int, error) {
	todo := store.Pending()
	if len(todo) == 0 {
		fmt.Fprintln(p.out, "没有需要上传的点评。")
		return 0, nil
	}
	if p.opts.MaxUpload > 0 && len(todo) > p.opts.MaxUpload {
		todo = todo[:p.opts.MaxUpload]
	}

	processed := 0
	for _, item := range todo {
		critique := strings.TrimSpace(item.Entry.Critique)
		if critique == "" {
			fmt.Fprintf(p.out, "[跳过] 活动 %s 缺少有效的 critique 字段。\n", item.ID)
			continue
		}

		if p.opts.DryRun {
			preview := strings.ReplaceAll(item.Entry.Critique, "\n", " ")
			if len([]rune(preview)) > 60 {
				preview = string([]rune(preview)[:60])
			}
			fmt.Fprintf(p.out, "[预览] 将把活动 %s 的描述更新为：%s...\n", item.ID, preview)
			continue
		}

		result, err := p.api.UpdateDescription(ctx, accessToken, item.ID, item.Entry.Critique)
		if err != nil {
			color.New(color.FgRed).Fprintf(p.out, "[失败] 无法更新活动 %s：%v\n", item.ID, err)
			continue
		}

		description := item.Entry.Critique
		if d, ok := result["description"].(string); ok && d != "" {
			description = d
		}
		item.Entry.MarkUploaded(description, p.now())
		if err := critic.SaveStore(p.opts.CritiquesFile, store); err != nil {
			return processed, fmt.Errorf("保存点评文件失败: %w", err)
		}
		processed++
		color.New(color.FgGreen).Fprintf(p.out, "[成功] 已更新活动 %s 的描述。\n", item.ID)
	}

	if p.opts.DryRun {
		fmt.Fprintln(p.out, "Dry run 完成，仅展示了准备更新的描述。")
	} else {
		fmt.Fprintf(p.out, "上传完成，共更新 %d 条活动描述。\n", processed)
	}
	return processed, nil
}
