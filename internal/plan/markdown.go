package plan

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed reports model output that does not follow the plan layout the
// generation prompt demands.
var ErrMalformed = errors.New("plan text does not match the expected layout")

const (
	headerTitle     = "### 学习主题:"
	headerTotalDays = "### 学习天数:"
	headerGoal      = "### 学习目标:"
	headerContent   = "### 学习计划描述"
	headerOutline   = "### 学习计划大纲"
	topicPrefix     = "* 学习内容:"
	pointsPrefix    = "* 学习知识点:"
)

var (
	dayHeadingRe = regexp.MustCompile(`^\*\*第(\d+)天\*\*$`)
	keyPointRe   = regexp.MustCompile(`^(\d+)[.、]\s*(.+)$`)
	daysNumberRe = regexp.MustCompile(`\d+`)
)

// ParseMarkdown converts free-text model output into a structured Record.
// The layout mirrors the generation prompt: title/days/goal headers, a
// description block, then a day-by-day outline with numbered key points.
func ParseMarkdown(text string) (Record, error) {
	lines := splitLines(text)

	var rec Record
	var desc []string
	var current *DayPlan
	inContent := false
	inOutline := false

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, headerTitle):
			rec.Title = headerValue(line, headerTitle)
			continue
		case strings.HasPrefix(line, headerTotalDays):
			rec.TotalDays = parseDays(headerValue(line, headerTotalDays))
			continue
		case strings.HasPrefix(line, headerGoal):
			rec.Goal = headerValue(line, headerGoal)
			continue
		case strings.HasPrefix(line, headerOutline):
			inContent = false
			inOutline = true
			continue
		case strings.HasPrefix(line, headerContent):
			inContent = true
			continue
		}

		if inContent && line != "" {
			desc = append(desc, line)
			continue
		}
		if !inOutline {
			continue
		}

		if m := dayHeadingRe.FindStringSubmatch(line); m != nil {
			day, _ := strconv.Atoi(m[1])
			rec.Days = append(rec.Days, DayPlan{Day: day})
			current = &rec.Days[len(rec.Days)-1]
			continue
		}
		if strings.HasPrefix(line, topicPrefix) {
			if current != nil {
				current.Topic = headerValue(line, topicPrefix)
			}
			continue
		}
		if strings.HasPrefix(line, pointsPrefix) {
			continue
		}
		if m := keyPointRe.FindStringSubmatch(line); m != nil && current != nil {
			current.KeyPoints = append(current.KeyPoints, strings.TrimSpace(m[2]))
		}
	}

	rec.Content = strings.Join(desc, " ")

	if rec.Title == "" || len(rec.Days) == 0 {
		return Record{}, fmt.Errorf("%w: missing title or outline", ErrMalformed)
	}
	if rec.TotalDays == 0 {
		rec.TotalDays = len(rec.Days)
	}
	rec.StartTime = time.Now().UTC()
	rec.EndTime = rec.StartTime.AddDate(0, 0, rec.TotalDays)
	return rec, nil
}

// RenderMarkdown produces the same layout ParseMarkdown reads, so a record
// can round-trip through the text form.
func RenderMarkdown(rec Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", headerTitle, rec.Title)
	fmt.Fprintf(&sb, "%s %d天\n", headerTotalDays, rec.TotalDays)
	fmt.Fprintf(&sb, "%s %s\n", headerGoal, rec.Goal)
	fmt.Fprintf(&sb, "%s:\n%s\n\n", headerContent, rec.Content)
	sb.WriteString(headerOutline + "\n")
	for _, day := range rec.Days {
		fmt.Fprintf(&sb, "\n**第%d天**\n", day.Day)
		fmt.Fprintf(&sb, "%s %s\n", topicPrefix, day.Topic)
		sb.WriteString(pointsPrefix + "\n")
		for i, point := range day.KeyPoints {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, point)
		}
	}
	return sb.String()
}

// DayNote renders the per-day note stub seeded alongside a saved plan.
func DayNote(day DayPlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n## 今日学习要点：\n", day.Topic)
	for _, point := range day.KeyPoints {
		fmt.Fprintf(&sb, "- %s\n", point)
	}
	return sb.String()
}

// splitLines tolerates both real newlines and the literal "\n" escapes some
// providers emit inside JSON string payloads.
func splitLines(text string) []string {
	if strings.Contains(text, `\n`) && !strings.Contains(text, "\n") {
		return strings.Split(text, `\n`)
	}
	return strings.Split(text, "\n")
}

func headerValue(line, prefix string) string {
	v := strings.TrimPrefix(line, prefix)
	v = strings.TrimLeft(v, ":： ")
	return strings.TrimSpace(v)
}

func parseDays(v string) int {
	m := daysNumberRe.FindString(v)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
