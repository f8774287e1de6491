// ABOUTME: Token payload persistence for Strava OAuth credentials.
// ABOUTME: Timestamp-named JSON files in a token directory, latest wins.
package strava

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// refreshSkew is how close to expiry a token may get before it is refreshed.
const refreshSkew = 60 * time.Second

// Token is the OAuth credential bundle the token endpoint returns.
type Token struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    int64           `json:"expires_at"`
	ExpiresIn    int64           `json:"expires_in,omitempty"`
	TokenType    string          `json:"token_type,omitempty"`
	Athlete      json.RawMessage `json:"athlete,omitempty"`
}

// NeedsRefresh reports whether the access token expires within the skew.
func (t *Token) NeedsRefresh(now time.Time) bool {
	return t.ExpiresAt <= now.Add(refreshSkew).Unix()
}

// LatestTokenFile picks the newest strava_token_*.json in dir. File names
// embed a timestamp, so lexicographic order is creation order.
func LatestTokenFile(dir string) (string, error) {
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("token 目录 %s 不存在，请先运行 roast auth serve 完成授权: %w", dir, err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "strava_token_*.json"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("token 目录 %s 中没有任何 token JSON 文件", dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// LoadToken reads a token payload from disk.
func LoadToken(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 token 文件失败: %w", err)
	}
	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("解析 token 文件 %s 失败: %w", path, err)
	}
	return &t, nil
}

// SaveToken overwrites the token file in place. 0600: it holds credentials.
func SaveToken(path string, t *Token) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

// WriteNewToken stores a freshly exchanged payload under a timestamp name
// inside dir, creating the directory if needed.
func WriteNewToken(dir string, t *Token, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("strava_token_%d.json", now.Unix()))
	if err := SaveToken(path, t); err != nil {
		return "", err
	}
	return path, nil
}
