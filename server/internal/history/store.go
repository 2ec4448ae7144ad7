package history

import (
	"context"

	"ccs-probe/server/internal/model"
)

// Store 是单个测试运行的交互历史。
//
// 约定（append-first，与回放契约）：
// - 历史只追加，绝不重排、绝不裁剪；步号严格按 0,1,2,... 递增。
// - Append 要求调用方已按 Count 给快照标好 Step，乱序直接拒绝。
// - 追加之后唯一允许的修改路径是 oracle 对 Latest 返回的最新一条
//   补记感知判定；除此之外历史条目视为不可变。
type Store interface {
	// Count 返回当前历史长度，同时也是下一条快照应使用的步号。
	Count(ctx context.Context) (int, error)
	// Append 追加一条快照。snap.Step 必须等于当前 Count。
	Append(ctx context.Context, snap *model.Interaction) error
	// Latest 返回最新一条快照（原件，供判定补记使用）。
	Latest(ctx context.Context) (*model.Interaction, error)
	// List 按步号顺序返回全量历史，用于汇总缺陷与导出。
	List(ctx context.Context) ([]*model.Interaction, error)
}
