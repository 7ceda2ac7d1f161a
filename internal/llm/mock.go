package llm

import (
	"context"
	"strings"

	"github.com/yangjx/studymate/internal/plan"
)

// MockCompleter provides deterministic local replies when no provider is
// configured, so the full conversation flow works offline.
type MockCompleter struct{}

func NewMockCompleter() *MockCompleter { return &MockCompleter{} }

func (c *MockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if strings.HasPrefix(systemPrompt, ClassifierSystemPrompt) {
		return classifyHeuristically(userPrompt), nil
	}
	return mockPlanMarkdown(userPrompt), nil
}

// classifyHeuristically stands in for the model: a statement counts as
// complete when it mentions both something goal-like and something
// level-like. Only the subject line is scanned, the surrounding prompt
// template mentions goals and levels itself.
func classifyHeuristically(userPrompt string) string {
	subject := userPrompt
	if i := strings.LastIndex(userPrompt, "学习需求："); i >= 0 {
		subject = userPrompt[i+len("学习需求："):]
	}
	hasGoal := strings.Contains(subject, "目标") || strings.Contains(subject, "希望") ||
		strings.Contains(subject, "能够")
	hasLevel := strings.Contains(subject, "基础") || strings.Contains(subject, "水平") ||
		strings.Contains(subject, "初学") || strings.Contains(subject, "入门")
	if hasGoal && hasLevel {
		return "是"
	}
	return "否"
}

func mockPlanMarkdown(userPrompt string) string {
	subject := "通用学习"
	for _, line := range strings.Split(userPrompt, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "主题：") {
			if v := strings.TrimSpace(strings.TrimPrefix(line, "主题：")); v != "" {
				subject = v
			}
			break
		}
	}

	rec := plan.Record{
		Title:     subject,
		Content:   "这是一个为期3天的示例学习计划，帮助你快速入门并完成第一个练习。",
		TotalDays: 3,
		Goal:      "掌握" + subject + "的基础知识",
		Days: []plan.DayPlan{
			{Day: 1, Topic: "基础概念", KeyPoints: []string{"了解核心术语", "搭建学习环境"}},
			{Day: 2, Topic: "动手练习", KeyPoints: []string{"完成第一个练习", "记录遇到的问题"}},
			{Day: 3, Topic: "小结与巩固", KeyPoints: []string{"复习前两天内容", "完成一个小项目"}},
		},
	}
	return plan.RenderMarkdown(rec)
}
