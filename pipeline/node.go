package pipeline

import (
	"context"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回阶段：生成候选集（五个生成器 + 混合器）
	KindRank        Kind = "rank"        // 排序阶段：个性化调权并排序
	KindFilter      Kind = "filter"      // 过滤阶段：库存/类目/价格/已购硬过滤
	KindReRank      Kind = "rerank"      // 重排阶段：截断与多样性
	KindPostProcess Kind = "postprocess" // 后处理阶段：reason 组装等最终修饰
)

// Node 是推荐链路的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态，召回生成、过滤截断、
// 个性化调权都是同一形态的 Node。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
