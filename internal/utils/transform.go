package utils

import (
	"strconv"
	"time"
)

// frenchMonths 法语月份名称（小写，与 fr-FR 长日期格式一致）
var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// BudgetToMillions 将预算（单位：美元）换算为百万，缺失时返回 0
func BudgetToMillions(raw *int64) float64 {
	if raw == nil {
		return 0
	}
	return float64(*raw) / 1_000_000
}

// ISODateToFrench 将 ISO 日期转换为法语长日期，如 "1999-03-31" -> "31 mars 1999"
// 解析失败返回空字符串
func ISODateToFrench(iso string) string {
	t, ok := parseISODate(iso)
	if !ok {
		return ""
	}
	return strconv.Itoa(t.Day()) + " " + frenchMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// ISODateToYear 提取年份，无法解析时返回 nil（避免无效年份写入状态）
func ISODateToYear(iso string) *int {
	t, ok := parseISODate(iso)
	if !ok {
		return nil
	}
	year := t.Year()
	return &year
}

// parseISODate 兼容 "YYYY-MM-DD" 与完整的 RFC3339 时间戳
func parseISODate(iso string) (time.Time, bool) {
	if iso == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, iso); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t, true
	}
	return time.Time{}, false
}
