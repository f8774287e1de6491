// ABOUTME: Pure formatting helpers converting raw Strava numbers to Chinese display strings.
// ABOUTME: Every function coerces loosely-typed input and falls back to a placeholder.
package metrics

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Placeholder strings returned when a value is missing or malformed.
// These never change: downstream tests and the agent prompt rely on them.
const (
	UnknownDistance  = "未知距离"
	UnknownDuration  = "未知用时"
	UnknownPace      = "配速未知"
	UnknownSpeed     = "速度未知"
	UnknownElevation = "海拔增益未知"
	UnknownHeartrate = "心率未知"
	UnknownPower     = "功率未知"
	UnknownCadence   = "步频未知"
)

// toFloat coerces a loosely-typed activity field into a float64.
// Strava fields arrive as numbers, but cached files and tool inputs may
// carry strings or json.Number values.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case *float64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FormatDistance renders meters as kilometers with two decimals.
func FormatDistance(meters any) string {
	m, ok := toFloat(meters)
	if !ok {
		return UnknownDistance
	}
	return fmt.Sprintf("%.2f 公里", m/1000)
}

// FormatDuration renders seconds as "H 小时 M 分 S 秒", dropping the hour
// part for durations under an hour.
func FormatDuration(seconds any) string {
	s, ok := toFloat(seconds)
	if !ok {
		return UnknownDuration
	}
	total := int(s)
	minutes, sec := total/60, total%60
	hours, minutes := minutes/60, minutes%60
	if hours > 0 {
		return fmt.Sprintf("%d 小时 %d 分 %d 秒", hours, minutes, sec)
	}
	return fmt.Sprintf("%d 分 %d 秒", minutes, sec)
}

// FormatPace renders seconds-per-kilometer pace as "M:SS/公里".
func FormatPace(distanceM, movingTimeS any) string {
	dist, ok := toFloat(distanceM)
	if !ok {
		return UnknownPace
	}
	moving, ok := toFloat(movingTimeS)
	if !ok {
		return UnknownPace
	}
	km := dist / 1000
	if km <= 0 {
		return UnknownPace
	}
	pace := int(moving / km)
	return fmt.Sprintf("%d:%02d/公里", pace/60, pace%60)
}

// FormatSwimPace renders seconds-per-100m pace as "M:SS/100米".
func FormatSwimPace(distanceM, movingTimeS any) string {
	dist, ok := toFloat(distanceM)
	if !ok {
		return UnknownPace
	}
	moving, ok := toFloat(movingTimeS)
	if !ok {
		return UnknownPace
	}
	if dist <= 0 {
		return UnknownPace
	}
	per100 := int(moving / dist * 100)
	return fmt.Sprintf("%d:%02d/100米", per100/60, per100%60)
}

// FormatSpeed converts meters-per-second to "X.X 公里/小时".
func FormatSpeed(metersPerSecond any) string {
	ms, ok := toFloat(metersPerSecond)
	if !ok {
		return UnknownSpeed
	}
	return fmt.Sprintf("%.1f 公里/小时", ms*3.6)
}

// FormatSwimSpeed is FormatSpeed with the two decimals swim summaries use.
func FormatSwimSpeed(metersPerSecond any) string {
	ms, ok := toFloat(metersPerSecond)
	if !ok {
		return UnknownSpeed
	}
	return fmt.Sprintf("%.2f 公里/小时", ms*3.6)
}

// FormatElevation renders total elevation gain as "爬升 X 米".
func FormatElevation(gainM any) string {
	gain, ok := toFloat(gainM)
	if !ok {
		return UnknownElevation
	}
	return fmt.Sprintf("爬升 %.0f 米", gain)
}

// FormatHeartrate renders average/max heart rate, degrading to whichever
// of the two values is present.
func FormatHeartrate(avg, max any) string {
	avgHR, hasAvg := toFloat(avg)
	maxHR, hasMax := toFloat(max)
	switch {
	case hasAvg && hasMax:
		return fmt.Sprintf("平均心率 %d，最高 %d bpm", int(avgHR), int(maxHR))
	case hasAvg:
		return fmt.Sprintf("平均心率 %d bpm", int(avgHR))
	case hasMax:
		return fmt.Sprintf("最高心率 %d bpm", int(maxHR))
	default:
		return UnknownHeartrate
	}
}
