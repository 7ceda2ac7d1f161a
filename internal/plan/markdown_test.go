package plan

import (
	"errors"
	"strings"
	"testing"
)

const samplePlan = `### 学习主题: Python基础到简单脚本编写
### 学习天数: 3天
### 学习目标: 能够独立编写简单脚本
### 学习计划描述:
为期3天的入门计划，从语法到脚本。
循序渐进，每天内容适量。

### 学习计划大纲

**第1天**
* 学习内容: Python基础语法与变量
* 学习知识点:
1. Python的安装与环境配置
2. 变量与数据类型
3. 基本运算符

**第2天**
* 学习内容: 流程控制
* 学习知识点:
1. if-else条件语句
2. for与while循环

**第3天**
* 学习内容: 函数与简单脚本
* 学习知识点:
1. 函数定义与调用
2. 读写文件
3. 编写第一个脚本
`

func TestParseMarkdown(t *testing.T) {
	rec, err := ParseMarkdown(samplePlan)
	if err != nil {
		t.Fatalf("ParseMarkdown() error = %v", err)
	}
	if rec.Title != "Python基础到简单脚本编写" {
		t.Fatalf("Title = %q", rec.Title)
	}
	if rec.TotalDays != 3 {
		t.Fatalf("TotalDays = %d, want 3", rec.TotalDays)
	}
	if rec.Goal != "能够独立编写简单脚本" {
		t.Fatalf("Goal = %q", rec.Goal)
	}
	if !strings.Contains(rec.Content, "为期3天的入门计划") {
		t.Fatalf("Content = %q", rec.Content)
	}
	if len(rec.Days) != 3 {
		t.Fatalf("len(Days) = %d, want 3", len(rec.Days))
	}
	if rec.Days[1].Topic != "流程控制" {
		t.Fatalf("Days[1].Topic = %q", rec.Days[1].Topic)
	}
	want := []string{"if-else条件语句", "for与while循环"}
	if len(rec.Days[1].KeyPoints) != len(want) {
		t.Fatalf("Days[1].KeyPoints = %v", rec.Days[1].KeyPoints)
	}
	for i, p := range want {
		if rec.Days[1].KeyPoints[i] != p {
			t.Fatalf("Days[1].KeyPoints[%d] = %q, want %q", i, rec.Days[1].KeyPoints[i], p)
		}
	}
	if rec.EndTime.Sub(rec.StartTime).Hours() != 72 {
		t.Fatalf("time range = %v..%v", rec.StartTime, rec.EndTime)
	}
}

func TestParseMarkdownEscapedNewlines(t *testing.T) {
	escaped := strings.ReplaceAll(samplePlan, "\n", `\n`)
	rec, err := ParseMarkdown(escaped)
	if err != nil {
		t.Fatalf("ParseMarkdown() error = %v", err)
	}
	if len(rec.Days) != 3 {
		t.Fatalf("len(Days) = %d, want 3", len(rec.Days))
	}
}

func TestParseMarkdownMalformed(t *testing.T) {
	_, err := ParseMarkdown("抱歉，我无法生成学习计划。")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("error = %v, want ErrMalformed", err)
	}
}

func TestRoundTripPreservesOutline(t *testing.T) {
	rec, err := ParseMarkdown(samplePlan)
	if err != nil {
		t.Fatalf("ParseMarkdown() error = %v", err)
	}

	again, err := ParseMarkdown(RenderMarkdown(rec))
	if err != nil {
		t.Fatalf("reparse error = %v", err)
	}
	if len(again.Days) != len(rec.Days) {
		t.Fatalf("day count changed: %d != %d", len(again.Days), len(rec.Days))
	}
	for i := range rec.Days {
		if again.Days[i].Topic != rec.Days[i].Topic {
			t.Fatalf("day %d topic changed: %q != %q", i+1, again.Days[i].Topic, rec.Days[i].Topic)
		}
		if len(again.Days[i].KeyPoints) != len(rec.Days[i].KeyPoints) {
			t.Fatalf("day %d key point count changed", i+1)
		}
		for j := range rec.Days[i].KeyPoints {
			if again.Days[i].KeyPoints[j] != rec.Days[i].KeyPoints[j] {
				t.Fatalf("day %d key point %d changed", i+1, j+1)
			}
		}
	}
}

func TestDayNote(t *testing.T) {
	note := DayNote(DayPlan{Day: 1, Topic: "流程控制", KeyPoints: []string{"if-else", "循环"}})
	if !strings.HasPrefix(note, "# 流程控制") {
		t.Fatalf("note = %q", note)
	}
	if !strings.Contains(note, "- if-else") || !strings.Contains(note, "- 循环") {
		t.Fatalf("note missing key points: %q", note)
	}
}
