package graph

import "fmt"

// TurnEndSentinel closes every turn stream so clients know the assistant
// payload is complete.
const TurnEndSentinel = "***完了***\n\n"

const (
	msgAskMoreInfo = "您输入的信息较少，请输入更多的信息。如目标和当前的水平。例如：我想要学习python，我没有任何基础，通过学习能够完成简单的编程"
	msgPlanSaved   = "学习计划已保存！祝您学习愉快！"

	// Shown on a transient collaborator failure. Status is left unchanged so
	// the same step runs again on the next message.
	msgTransientFailure = "系统出现异常了。。请稍后重试！"
	msgTimeoutFailure   = "大模型服务连接超时，请稍后重试！"

	msgPlanUnparsable = "生成的学习计划格式有误，无法保存。请告诉我需要调整的地方，我会重新生成。"
	msgSaveFailed     = "学习计划保存失败，请稍后再试一次。"
)

func msgAskDeepLearn(historyPlan string) string {
	return fmt.Sprintf("检测到您曾经学习过如下内容：\n\n'%s'\n\n您是否希望在此基础上进行深入学习？", historyPlan)
}

func msgPresentPlan(level Level, planText string) string {
	label := "初级"
	if level == LevelAdvanced {
		label = "进阶"
	}
	return fmt.Sprintf("为您生成了一份%s学习计划：\n\n%s\n\n您对这个计划满意吗？", label, planText)
}

func msgPresentAdjustedPlan(planText string) string {
	return fmt.Sprintf("根据您的反馈，已调整学习计划：\n\n%s\n\n您对这个调整后的计划满意吗？", planText)
}
