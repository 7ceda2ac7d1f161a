package llm

import "fmt"

// ClassifierSystemPrompt drives the input-completeness check. The mock
// completer recognizes it, so keep the adapters and the prompt in one place.
const ClassifierSystemPrompt = "你是一个教育助手，负责判断用户输入的学习需求是否完整。"

const classifierUserPrompt = `请判断下面的学习需求是否同时包含了学习目标和当前的水平。
只输出“是”或“否”，不要输出其他内容。
学习需求：%s`

// PlannerSystemPrompt is the educational-advisor persona used for every plan
// generation call.
const PlannerSystemPrompt = `你是一个专业的教育顾问，请根据用户输入的内容，制定一个学习计划。
请确保：
1. 知识点循序渐进，由浅入深
2. 每天的学习内容适量，考虑学习者的接受能力
3. 知识点之间有合理的联系
4. 每天的主题明确，知识点具体
5. 知识点应当可操作和可实践`

const planFormatRules = `在输出时，请严格按照以下格式提供学习计划，其他无关内容不要输出：

### 学习主题: 学习的主题
### 学习天数: 计划天数
### 学习目标: 具体学习目标
### 学习计划描述:
总体学习概述
### 学习计划大纲
**第n天**（n从1开始）
* 学习内容: 当天主要学习主题
* 学习知识点:
1. 关键知识点1
2. 关键知识点2
3. ......`

const beginnerPlanPrompt = `主题：%s
我是一个中文用户，请用中文回答我的问题。
我是初学者，请根据以上主题为我制定一个入门学习计划。
%s`

const advancedPlanPrompt = `主题：%s
我曾经学习过以下内容：
%s
我是一个中文用户，请用中文回答我的问题。
请在已有基础上为我制定一个进阶学习计划，避免重复已经掌握的内容。
%s`

// ClassifyInputPrompts builds the prompt pair for the completeness check.
func ClassifyInputPrompts(subject string) (system, user string) {
	return ClassifierSystemPrompt, fmt.Sprintf(classifierUserPrompt, subject)
}

// BeginnerPlanPrompts builds the prompt pair for a from-scratch plan.
func BeginnerPlanPrompts(subject string) (system, user string) {
	return PlannerSystemPrompt, fmt.Sprintf(beginnerPlanPrompt, subject, planFormatRules)
}

// AdvancedPlanPrompts builds the prompt pair for a plan that deepens prior
// learning; historyPlan is the retrieved summary of earlier content.
func AdvancedPlanPrompts(subject, historyPlan string) (system, user string) {
	return PlannerSystemPrompt, fmt.Sprintf(advancedPlanPrompt, subject, historyPlan, planFormatRules)
}
