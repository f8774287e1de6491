// ABOUTME: Tests for the pipeline orchestrator with fake API and generator.
// ABOUTME: Covers token refresh timing, stage skipping, idempotence, upload caps.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suweiran/roast/internal/critic"
	"github.com/suweiran/roast/internal/models"
	"github.com/suweiran/roast/internal/strava"
)

// fakeAPI records pipeline calls and serves canned responses.
type fakeAPI struct {
	refreshed      []string
	refreshToken   *strava.Token
	refreshErr     error
	activities     []models.Activity
	fetchErr       error
	fetchedWith    []string
	updates        []string
	updateErr      map[string]error
	updateResponse map[string]map[string]any
}

func (f *fakeAPI) RefreshToken(_ context.Context, refreshToken string) (*strava.Token, error) {
	f.refreshed = append(f.refreshed, refreshToken)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshToken, nil
}

func (f *fakeAPI) FetchActivities(_ context.Context, accessToken string, _ int) ([]models.Activity, error) {
	f.fetchedWith = append(f.fetchedWith, accessToken)
	return f.activities, f.fetchErr
}

func (f *fakeAPI) UpdateDescription(_ context.Context, _, activityID, _ string) (map[string]any, error) {
	f.updates = append(f.updates, activityID)
	if err := f.updateErr[activityID]; err != nil {
		return nil, err
	}
	if resp := f.updateResponse[activityID]; resp != nil {
		return resp, nil
	}
	return map[string]any{"id": activityID}, nil
}

// fakeGenerator critiques by template and can fail for chosen activities.
type fakeGenerator struct {
	calls   []string
	failFor map[string]error
}

func (g *fakeGenerator) Critique(_ context.Context, a *models.Activity) (string, error) {
	id := a.IDString()
	g.calls = append(g.calls, id)
	if err := g.failFor[id]; err != nil {
		return "", err
	}
	return "点评 " + id, nil
}

func mustActivity(t *testing.T, payload string) models.Activity {
	t.Helper()
	var a models.Activity
	require.NoError(t, json.Unmarshal([]byte(payload), &a))
	return a
}

func writeTokenFile(t *testing.T, dir string, unix int64, tok *strava.Token) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0750))
	path := filepath.Join(dir, fmt.Sprintf("strava_token_%d.json", unix))
	require.NoError(t, strava.SaveToken(path, tok))
	return path
}

func TestEnsureAccessTokenRefreshesOnce(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1_700_000_000, 0)
	path := writeTokenFile(t, dir, now.Unix(), &strava.Token{
		AccessToken:  "stale",
		RefreshToken: "ref-1",
		ExpiresAt:    now.Unix() - 1, // expired
	})

	api := &fakeAPI{refreshToken: &strava.Token{
		AccessToken:  "fresh",
		RefreshToken: "ref-2",
		ExpiresAt:    now.Unix() + 3600,
	}}
	var out bytes.Buffer
	p := New(Options{TokenDir: dir}, api, nil, &out)
	p.now = func() time.Time { return now }

	got, err := p.EnsureAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
	assert.Equal(t, []string{"ref-1"}, api.refreshed)

	// The refreshed payload must overwrite the same file.
	saved, err := strava.LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "ref-2", saved.RefreshToken)
}

func TestEnsureAccessTokenStillValid(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1_700_000_000, 0)
	writeTokenFile(t, dir, now.Unix(), &strava.Token{
		AccessToken:  "valid",
		RefreshToken: "ref",
		ExpiresAt:    now.Unix() + 3600,
	})

	api := &fakeAPI{}
	p := New(Options{TokenDir: dir}, api, nil, &bytes.Buffer{})
	p.now = func() time.Time { return now }

	got, err := p.EnsureAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "valid", got)
	assert.Empty(t, api.refreshed)
}

func TestEnsureAccessTokenPicksLatestFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1_700_000_000, 0)
	writeTokenFile(t, dir, now.Unix()-500, &strava.Token{AccessToken: "old", ExpiresAt: now.Unix() + 3600})
	writeTokenFile(t, dir, now.Unix(), &strava.Token{AccessToken: "new", ExpiresAt: now.Unix() + 3600})

	p := New(Options{TokenDir: dir}, &fakeAPI{}, nil, &bytes.Buffer{})
	p.now = func() time.Time { return now }

	got, err := p.EnsureAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestRunRefreshesTokenBeforeFetch(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1_700_000_000, 0)
	path := writeTokenFile(t, dir, now.Unix(), &strava.Token{
		AccessToken:  "stale",
		RefreshToken: "ref-1",
		ExpiresAt:    now.Unix() - 1,
	})

	api := &fakeAPI{refreshToken: &strava.Token{
		AccessToken:  "fresh",
		RefreshToken: "ref-2",
		ExpiresAt:    now.Unix() + 3600,
	}}
	api.activities = []models.Activity{mustActivity(t, `{"id": 31}`)}

	// The fetch call must see the already-refreshed token on disk.
	var tokenOnDiskAtFetch string

	p := New(Options{
		TokenDir:       dir,
		ActivitiesFile: filepath.Join(t.TempDir(), "latest_activities.json"),
		SkipGenerate:   true,
		SkipUpload:     true,
	}, &checkingAPI{fakeAPI: api, onFetch: func() {
		tok, err := strava.LoadToken(path)
		require.NoError(t, err)
		tokenOnDiskAtFetch = tok.AccessToken
	}}, nil, &bytes.Buffer{})
	p.now = func() time.Time { return now }

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{"ref-1"}, api.refreshed)
	assert.Equal(t, "fresh", tokenOnDiskAtFetch)
	assert.Equal(t, []string{"fresh"}, api.fetchedWith)
}

// checkingAPI runs a hook before delegating the fetch call.
type checkingAPI struct {
	*fakeAPI
	onFetch func()
}

func (c *checkingAPI) FetchActivities(ctx context.Context, accessToken string, perPage int) ([]models.Activity, error) {
	if c.onFetch != nil {
		c.onFetch()
	}
	return c.fakeAPI.FetchActivities(ctx, accessToken, perPage)
}

func TestRunFetchOnly(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1_700_000_000, 0)
	writeTokenFile(t, dir, now.Unix(), &strava.Token{AccessToken: "acc", ExpiresAt: now.Unix() + 3600})

	api := &fakeAPI{activities: []models.Activity{
		mustActivity(t, `{"id": 11, "sport_type": "Run"}`),
	}}
	activitiesFile := filepath.Join(t.TempDir(), "latest_activities.json")
	p := New(Options{
		TokenDir:       dir,
		ActivitiesFile: activitiesFile,
		SkipGenerate:   true,
		SkipUpload:     true,
	}, api, nil, &bytes.Buffer{})
	p.now = func() time.Time { return now }

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{"acc"}, api.fetchedWith)

	loaded, err := LoadActivities(activitiesFile)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "11", loaded[0].IDString())
}

func TestGenerateEmptyActivitiesFatal(t *testing.T) {
	p := New(Options{CritiquesFile: filepath.Join(t.TempDir(), "c.json")}, &fakeAPI{}, &fakeGenerator{}, &bytes.Buffer{})
	_, err := p.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "活动列表为空")
}

func TestGenerateSkipsUploaded(t *testing.T) {
	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")
	require.NoError(t, os.WriteFile(critiquesFile, []byte(`{
  "11": {"critique": "旧点评", "uploaded": true},
  "12": {"critique": "待传点评", "uploaded": false}
}`), 0644))

	gen := &fakeGenerator{}
	p := New(Options{CritiquesFile: critiquesFile}, &fakeAPI{}, gen, &bytes.Buffer{})

	activities := []models.Activity{
		mustActivity(t, `{"id": 11, "sport_type": "Run"}`),
		mustActivity(t, `{"id": 12, "sport_type": "Ride"}`),
		mustActivity(t, `{"id": 13, "sport_type": "Swim"}`),
	}
	store, err := p.Generate(context.Background(), activities)
	require.NoError(t, err)

	// 11 is uploaded and must not be regenerated; 12 and 13 are.
	assert.Equal(t, []string{"12", "13"}, gen.calls)

	entry, ok := store.Get("11")
	require.True(t, ok)
	assert.Equal(t, "旧点评", entry.Critique)
	assert.True(t, entry.Uploaded)

	entry, ok = store.Get("13")
	require.True(t, ok)
	assert.Equal(t, "点评 13", entry.Critique)
}

func TestGenerateTwiceOnUploadedStoreIsIdempotent(t *testing.T) {
	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")
	require.NoError(t, os.WriteFile(critiquesFile, []byte(`{
  "11": {"critique": "一", "uploaded": true},
  "12": {"critique": "二", "uploaded": true}
}`), 0644))

	gen := &fakeGenerator{}
	p := New(Options{CritiquesFile: critiquesFile}, &fakeAPI{}, gen, &bytes.Buffer{})
	activities := []models.Activity{
		mustActivity(t, `{"id": 11}`),
		mustActivity(t, `{"id": 12}`),
	}

	_, err := p.Generate(context.Background(), activities)
	require.NoError(t, err)
	first, err := os.ReadFile(critiquesFile)
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), activities)
	require.NoError(t, err)
	second, err := os.ReadFile(critiquesFile)
	require.NoError(t, err)

	assert.Empty(t, gen.calls, "fully uploaded store must not trigger generation")
	assert.Equal(t, string(first), string(second))
}

func TestGenerateRegenerateUploaded(t *testing.T) {
	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")
	require.NoError(t, os.WriteFile(critiquesFile, []byte(`{"11": {"critique": "旧", "uploaded": true}}`), 0644))

	gen := &fakeGenerator{}
	p := New(Options{CritiquesFile: critiquesFile, RegenerateUploaded: true}, &fakeAPI{}, gen, &bytes.Buffer{})

	store, err := p.Generate(context.Background(), []models.Activity{
		mustActivity(t, `{"id": 11, "sport_type": "Run"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"11"}, gen.calls)

	entry, _ := store.Get("11")
	assert.Equal(t, "点评 11", entry.Critique)
	assert.False(t, entry.Uploaded, "regenerated entry goes back to pending")
}

func TestGenerateLogsSportCategory(t *testing.T) {
	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")
	var out bytes.Buffer
	p := New(Options{CritiquesFile: critiquesFile}, &fakeAPI{}, &fakeGenerator{}, &out)

	_, err := p.Generate(context.Background(), []models.Activity{
		mustActivity(t, `{"id": 1, "sport_type": "TrailRun"}`),
		mustActivity(t, `{"id": 2, "sport_type": "VirtualRide"}`),
		mustActivity(t, `{"id": 3, "sport_type": "Swim"}`),
		mustActivity(t, `{"id": 4, "sport_type": "Yoga"}`),
	})
	require.NoError(t, err)

	log := out.String()
	assert.Contains(t, log, "活动 1（跑步）")
	assert.Contains(t, log, "活动 2（骑行）")
	assert.Contains(t, log, "活动 3（游泳）")
	// Unrecognized sports keep their raw tag.
	assert.Contains(t, log, "活动 4（Yoga）")
}

func TestGenerateContinuesPastFailures(t *testing.T) {
	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")
	gen := &fakeGenerator{failFor: map[string]error{
		"12": errors.New("模型超时"),
	}}
	var out bytes.Buffer
	p := New(Options{CritiquesFile: critiquesFile}, &fakeAPI{}, gen, &out)

	store, err := p.Generate(context.Background(), []models.Activity{
		mustActivity(t, `{"id": 11}`),
		mustActivity(t, `{"id": 12}`),
		mustActivity(t, `{"id": 13}`),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"11", "12", "13"}, gen.calls)
	_, ok := store.Get("12")
	assert.False(t, ok, "failed activity must not get a store entry")
	assert.Contains(t, out.String(), "[失败]")

	// The partial result is on disk.
	reloaded, err := critic.LoadStore(critiquesFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"11", "13"}, reloaded.IDs())
}

func TestUploadMarksAndPersistsEachSuccess(t *testing.T) {
	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")
	require.NoError(t, os.WriteFile(critiquesFile, []byte(`{
  "11": {"critique": "点评一", "uploaded": false},
  "12": {"critique": "点评二", "uploaded": false}
}`), 0644))
	store, err := critic.LoadStore(critiquesFile)
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	api := &fakeAPI{
		updateErr: map[string]error{"12": errors.New("boom")},
		updateResponse: map[string]map[string]any{
			"11": {"description": "点评一（已同步）"},
		},
	}
	p := New(Options{CritiquesFile: critiquesFile}, api, nil, &bytes.Buffer{})
	p.now = func() time.Time { return now }

	processed, err := p.Upload(context.Background(), "acc", store)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"11", "12"}, api.updates)

	reloaded, err := critic.LoadStore(critiquesFile)
	require.NoError(t, err)

	first, _ := reloaded.Get("11")
	assert.True(t, first.Uploaded)
	assert.Equal(t, "点评一（已同步）", first.UpdatedDescription)
	assert.Equal(t, now.UTC().Format(time.RFC3339), first.UploadedAt)

	// Failed upload stays pending with uploaded=false.
	second, _ := reloaded.Get("12")
	assert.False(t, second.Uploaded)
	require.Len(t, reloaded.Pending(), 1)
	assert.Equal(t, "12", reloaded.Pending()[0].ID)
}

func TestUploadMaxCount(t *testing.T) {
	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")
	require.NoError(t, os.WriteFile(critiquesFile, []byte(`{
  "11": {"critique": "一", "uploaded": false},
  "12": {"critique": "二", "uploaded": false},
  "13": {"critique": "三", "uploaded": false}
}`), 0644))
	store, err := critic.LoadStore(critiquesFile)
	require.NoError(t, err)

	api := &fakeAPI{}
	p := New(Options{CritiquesFile: critiquesFile, MaxUpload: 2}, api, nil, &bytes.Buffer{})

	processed, err := p.Upload(context.Background(), "acc", store)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, []string{"11", "12"}, api.updates)
}

func TestUploadDryRun(t *testing.T) {
	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")
	require.NoError(t, os.WriteFile(critiquesFile, []byte(`{"11": {"critique": "预览点评", "uploaded": false}}`), 0644))
	store, err := critic.LoadStore(critiquesFile)
	require.NoError(t, err)

	api := &fakeAPI{}
	var out bytes.Buffer
	p := New(Options{CritiquesFile: critiquesFile, DryRun: true}, api, nil, &out)

	processed, err := p.Upload(context.Background(), "acc", store)
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Empty(t, api.updates, "dry run must not call the API")
	assert.Contains(t, out.String(), "[预览]")

	// Nothing changed on disk either.
	reloaded, err := critic.LoadStore(critiquesFile)
	require.NoError(t, err)
	entry, _ := reloaded.Get("11")
	assert.False(t, entry.Uploaded)
}

func TestUploadSkipsEmptyCritique(t *testing.T) {
	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")
	require.NoError(t, os.WriteFile(critiquesFile, []byte(`{
  "11": {"critique": "   ", "uploaded": false},
  "12": {"critique": "正常点评", "uploaded": false}
}`), 0644))
	store, err := critic.LoadStore(critiquesFile)
	require.NoError(t, err)

	api := &fakeAPI{}
	var out bytes.Buffer
	p := New(Options{CritiquesFile: critiquesFile}, api, nil, &out)

	processed, err := p.Upload(context.Background(), "acc", store)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"12"}, api.updates)
	assert.Contains(t, out.String(), "[跳过] 活动 11")
}

func TestRunUploadOnlyUsesStoreFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1_700_000_000, 0)
	writeTokenFile(t, dir, now.Unix(), &strava.Token{AccessToken: "acc", ExpiresAt: now.Unix() + 3600})

	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")
	require.NoError(t, os.WriteFile(critiquesFile, []byte(`{"11": {"critique": "上传我", "uploaded": false}}`), 0644))

	api := &fakeAPI{}
	p := New(Options{
		TokenDir:      dir,
		CritiquesFile: critiquesFile,
		SkipFetch:     true,
		SkipGenerate:  true,
	}, api, nil, &bytes.Buffer{})
	p.now = func() time.Time { return now }

	require.NoError(t, p.Run(context.Background()))
	assert.Empty(t, api.fetchedWith)
	assert.Equal(t, []string{"11"}, api.updates)
}

func TestRunUploadOnlyMissingStoreFileFatal(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1_700_000_000, 0)
	writeTokenFile(t, dir, now.Unix(), &strava.Token{AccessToken: "acc", ExpiresAt: now.Unix() + 3600})

	api := &fakeAPI{}
	p := New(Options{
		TokenDir:      dir,
		CritiquesFile: filepath.Join(t.TempDir(), "activity_critiques.json"),
		SkipFetch:     true,
		SkipGenerate:  true,
	}, api, nil, &bytes.Buffer{})
	p.now = func() time.Time { return now }

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未找到点评文件")
	assert.Empty(t, api.updates)
}

func TestRunGenerateOnlyReadsActivitiesFile(t *testing.T) {
	activitiesFile := filepath.Join(t.TempDir(), "latest_activities.json")
	require.NoError(t, os.WriteFile(activitiesFile, []byte(`[{"id": 21, "sport_type": "Run"}]`), 0644))
	critiquesFile := filepath.Join(t.TempDir(), "activity_critiques.json")

	gen := &fakeGenerator{}
	api := &fakeAPI{}
	p := New(Options{
		ActivitiesFile: activitiesFile,
		CritiquesFile:  critiquesFile,
		SkipFetch:      true,
		SkipUpload:     true,
	}, api, gen, &bytes.Buffer{})

	require.NoError(t, p.Run(context.Background()))
	assert.Empty(t, api.fetchedWith, "generate-only run must not touch the network API")
	assert.Empty(t, api.refreshed, "generate-only run needs no token")
	assert.Equal(t, []string{"21"}, gen.calls)
}
