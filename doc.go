// Package recommend 是一个电商推荐与个性化引擎（儿童商品场景）。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（混合召回 → 个性化排序 → 过滤 → 截断）
// - Labels-first: algorithm / reason / filtered 标签全链路透传，支持 explain 与观测
// - 无全局状态: 目录、订单、缓存全部注入（core 定义接口，宿主系统实现）
// - 永不失败: 读路径沿 指定算法 → hybrid → popularity → 空列表 逐级降级
//
// 入口见 engine 包：
//
//	e := engine.New(catalog, orders, cache, core.DefaultConfig(), logger)
//	items := e.GetRecommendations(ctx, userID, engine.Options{Limit: 10})
package recommend

import "github.com/bouzaHichem/damio-kids-backend-sub000/pipeline"

// 轻量 facade：便于直接使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
