// ABOUTME: Per-sport metric summaries built from a loose activity mapping.
// ABOUTME: Closed dispatch over Run, Ride, Swim, and a generic fallback.
package metrics

import (
	"fmt"
	"strings"

	"github.com/suweiran/roast/internal/models"
)

// header renders the "name｜sport" line every summary starts with.
func header(a map[string]any) string {
	name, _ := a["name"].(string)
	if name == "" {
		name = "未命名训练"
	}
	sport, _ := a["sport_type"].(string)
	if sport == "" {
		sport, _ = a["type"].(string)
	}
	if sport == "" {
		sport = "未知"
	}
	return name + "｜" + sport
}

// Summarize dispatches to the sport-specific summary for the given tag.
func Summarize(sport models.SportType, a map[string]any) string {
	switch sport {
	case models.SportRun:
		return RunningSummary(a)
	case models.SportRide:
		return CyclingSummary(a)
	case models.SportSwim:
		return SwimmingSummary(a)
	default:
		return GeneralSummary(a)
	}
}

// RunningSummary lays out pace, heart rate, elevation, and cadence for a run.
func RunningSummary(a map[string]any) string {
	lines := []string{
		header(a),
		"距离：" + FormatDistance(a["distance"]),
		"移动时间：" + FormatDuration(a["moving_time"]),
		"平均配速：" + FormatPace(a["distance"], a["moving_time"]),
		FormatHeartrate(a["average_heartrate"], a["max_heartrate"]),
		FormatElevation(a["total_elevation_gain"]),
	}
	if cadence, ok := toFloat(a["average_cadence"]); ok {
		lines = append(lines, fmt.Sprintf("步频 %.0f", cadence))
	} else {
		lines = append(lines, UnknownCadence)
	}
	if suffer, ok := toFloat(a["suffer_score"]); ok {
		lines = append(lines, fmt.Sprintf("受虐指数 %.0f", suffer))
	}
	return strings.Join(lines, "\n")
}

// CyclingSummary focuses on speed, power, cadence, and climbing.
func CyclingSummary(a map[string]any) string {
	lines := []string{
		header(a),
		"距离：" + FormatDistance(a["distance"]),
		"移动时间：" + FormatDuration(a["moving_time"]),
		"总用时：" + FormatDuration(a["elapsed_time"]),
		"速度：" + speedRange(a, FormatSpeed),
		powerLine(a),
		FormatHeartrate(a["average_heartrate"], a["max_heartrate"]),
		FormatElevation(a["total_elevation_gain"]),
	}
	if cadence, ok := toFloat(a["average_cadence"]); ok {
		lines = append(lines, fmt.Sprintf("踏频 %.0f rpm", cadence))
	}
	if temp, ok := toFloat(a["average_temp"]); ok {
		lines = append(lines, fmt.Sprintf("温度 %.0f°C", temp))
	}
	if cal, ok := toFloat(a["calories"]); ok {
		lines = append(lines, fmt.Sprintf("卡路里 %.0f", cal))
	}
	if trainer, _ := a["trainer"].(bool); trainer {
		lines = append(lines, "环境：训练台")
	} else {
		lines = append(lines, "环境：户外骑行")
	}
	return strings.Join(lines, "\n")
}

// SwimmingSummary reports per-100m pace, speed, and stroke rate.
func SwimmingSummary(a map[string]any) string {
	lines := []string{
		header(a),
		"距离：" + FormatDistance(a["distance"]),
		"移动时间：" + FormatDuration(a["moving_time"]),
		"总用时：" + FormatDuration(a["elapsed_time"]),
		"平均配速：" + FormatSwimPace(a["distance"], a["moving_time"]),
		"速度：" + speedRange(a, FormatSwimSpeed),
		FormatHeartrate(a["average_heartrate"], a["max_heartrate"]),
	}
	if cadence, ok := toFloat(a["average_cadence"]); ok {
		lines = append(lines, fmt.Sprintf("划水频率 %.0f spm", cadence))
	}
	if cal, ok := toFloat(a["calories"]); ok {
		lines = append(lines, fmt.Sprintf("卡路里 %.0f", cal))
	}
	if trainer, _ := a["trainer"].(bool); trainer {
		lines = append(lines, "环境：泳池训练")
	}
	return strings.Join(lines, "\n")
}

// GeneralSummary covers workouts outside the known sports, only reporting
// the sections the record actually carries.
func GeneralSummary(a map[string]any) string {
	lines := []string{
		header(a),
		"距离：" + FormatDistance(a["distance"]),
		"移动时间：" + FormatDuration(a["moving_time"]),
		"总用时：" + FormatDuration(a["elapsed_time"]),
	}
	if avg, ok := toFloat(a["average_speed"]); ok && avg > 0 {
		line := "平均速度：" + FormatSpeed(avg)
		if maxSpeed, ok := toFloat(a["max_speed"]); ok {
			line += "，最高 " + FormatSpeed(maxSpeed)
		}
		lines = append(lines, line)
	}
	if a["average_heartrate"] != nil || a["max_heartrate"] != nil {
		lines = append(lines, FormatHeartrate(a["average_heartrate"], a["max_heartrate"]))
	}
	if _, ok := toFloat(a["total_elevation_gain"]); ok {
		lines = append(lines, FormatElevation(a["total_elevation_gain"]))
	}
	if cadence, ok := toFloat(a["average_cadence"]); ok {
		lines = append(lines, fmt.Sprintf("步频/踏频 %.0f", cadence))
	}
	if temp, ok := toFloat(a["average_temp"]); ok {
		lines = append(lines, fmt.Sprintf("温度 %.0f°C", temp))
	}
	if cal, ok := toFloat(a["calories"]); ok {
		lines = append(lines, fmt.Sprintf("卡路里 %.0f", cal))
	}
	if trainer, _ := a["trainer"].(bool); trainer {
		lines = append(lines, "环境：室内训练")
	} else if latlng, ok := a["start_latlng"].([]any); ok && len(latlng) > 0 {
		lines = append(lines, "环境：户外活动")
	}
	return strings.Join(lines, "\n")
}

// speedRange renders "平均 X，最高 Y" using the supplied speed formatter.
func speedRange(a map[string]any, format func(any) string) string {
	avg, ok := toFloat(a["average_speed"])
	if !ok {
		return UnknownSpeed
	}
	out := "平均 " + format(avg)
	if maxSpeed, ok := toFloat(a["max_speed"]); ok {
		out += "，最高 " + format(maxSpeed)
	}
	return out
}

// powerLine renders cycling power, noting whether it came from a meter.
func powerLine(a map[string]any) string {
	avg, ok := toFloat(a["average_watts"])
	if !ok || avg <= 0 {
		return UnknownPower
	}
	source := "估算"
	if device, _ := a["device_watts"].(bool); device {
		source = "功率计"
	}
	line := fmt.Sprintf("平均功率 %.0f W (%s)", avg, source)
	if weighted, ok := toFloat(a["weighted_average_watts"]); ok {
		line += fmt.Sprintf("，加权 %.0f W", weighted)
	}
	return line
}
