// ABOUTME: Activities file persistence for the fetch stage.
// ABOUTME: Pretty-printed JSON array written on fetch, read back when fetch is skipped.
package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/suweiran/roast/internal/models"
)

// SaveActivities writes the fetched records verbatim, two-space indented.
func SaveActivities(path string, activities []models.Activity) error {
	raws := make([]json.RawMessage, 0, len(activities))
	for i := range activities {
		raws = append(raws, activities[i].Raw())
	}
	compact, err := json.Marshal(raws)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, compact, "", "  "); err != nil {
		return err
	}
	pretty.WriteByte('\n')
	return os.WriteFile(path, pretty.Bytes(), 0644)
}

// LoadActivities reads a previously fetched activities file. A top level
// that is not an array is fatal; non-object members are dropped.
func LoadActivities(path string) ([]models.Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("缺少活动文件 %s: %w", path, err)
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("活动文件 %s 必须是 JSON 数组: %w", path, err)
	}
	activities := make([]models.Activity, 0, len(raws))
	for _, raw := range raws {
		var a models.Activity
		if err := json.Unmarshal(raw, &a); err != nil {
			continue
		}
		activities = append(activities, a)
	}
	return activities, nil
}
