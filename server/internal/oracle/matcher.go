package oracle

import "ccs-probe/server/internal/model"

// Match 对一步快照执行端口配对（CCS 的互补端口同步，只作设计隐喻，
// 没有任何并发语义）。
//
// 算法：单趟扫描激活意图，意图的搭档能力在激活能力集里就记一对
// satisfied，否则记 unsatisfied；扫完之后 unused = 激活能力 − 已用能力。
// O(|intents| + |capabilities|)。幂等：每次调用先重建三个结果集，
// 相同输入必然得到相同的集合（集合语义，与遍历顺序无关）。
func Match(inter *model.Interaction) {
	inter.Satisfied = make(map[model.UserIntent]model.AppCapability, len(inter.User.ActiveIntents))
	inter.Unsatisfied = map[model.UserIntent]bool{}
	inter.UnusedCapabilities = map[model.AppCapability]bool{}

	for intent := range inter.User.ActiveIntents {
		partner, ok := portPairs[intent]
		if ok && inter.App.ActiveCapabilities[partner] {
			inter.Satisfied[intent] = partner
		} else {
			inter.Unsatisfied[intent] = true
		}
	}

	used := map[model.AppCapability]bool{}
	for _, cap := range inter.Satisfied {
		used[cap] = true
	}
	for cap := range inter.App.ActiveCapabilities {
		if !used[cap] {
			inter.UnusedCapabilities[cap] = true
		}
	}
}

// ConsistencyResult 是一次一致性检查的三态结论。
type ConsistencyResult string

const (
	// ConsistencyNotValidated 测试者尚未给出判定，不能当作不一致。
	ConsistencyNotValidated ConsistencyResult = "not_validated"
	// ConsistencyConsistent 界面与模型预测一致。
	ConsistencyConsistent ConsistencyResult = "consistent"
	// ConsistencyInconsistent 测试者报告不一致，已记录缺陷。
	ConsistencyInconsistent ConsistencyResult = "inconsistent"
)

// CheckConsistency 读取本步的感知判定并给出结论。
//
// 副作用仅限本快照自己的缺陷列表：
// - unknown：什么都不记，返回"尚未验证"。
// - match：什么都不记，返回一致。
// - mismatch：追加一条 ui_inconsistency 缺陷，带上预期/实际可见元素
//   （排序稳定）、步号与测试者备注。
func CheckConsistency(inter *model.Interaction) ConsistencyResult {
	switch inter.User.Perception {
	case model.PerceptionMatch:
		return ConsistencyConsistent
	case model.PerceptionMismatch:
		inter.Bugs = append(inter.Bugs, model.Bug{
			Step:            inter.Step,
			Kind:            model.BugUIInconsistency,
			ExpectedVisible: model.SortedKeys(inter.User.ExpectedVisible),
			ActualVisible:   model.SortedKeys(inter.App.VisibleElements),
			Notes:           inter.User.PerceptionNotes,
		})
		return ConsistencyInconsistent
	default:
		return ConsistencyNotValidated
	}
}
