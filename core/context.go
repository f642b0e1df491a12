package core

import "github.com/bouzaHichem/damio-kids-backend-sub000/pkg/utils"

// RecommendContext 承载用户/场景/请求信息，贯穿整个链路透传。
type RecommendContext struct {
	UserID string
	Scene  string // homepage / products / deals / similar ...

	// User 是该请求绑定的兴趣画像快照（调用时拷贝，不订阅后续变更）
	User *InterestProfile

	// Labels 是用户级标签，可驱动链路行为（如 new-user 走冷启动补充）
	Labels map[string]utils.Label

	// Params 请求级上下文参数：limit、seed_product、price_range 等
	Params map[string]any
}

// NewRecommendContext 创建一个空画像的请求上下文。
func NewRecommendContext(userID string) *RecommendContext {
	return &RecommendContext{
		UserID: userID,
		Labels: make(map[string]utils.Label),
		Params: make(map[string]any),
	}
}

// Profile 返回画像；没有画像时退回 DefaultProfile，调用方无需判空。
func (rctx *RecommendContext) Profile() *InterestProfile {
	if rctx.User != nil {
		return rctx.User
	}
	return DefaultProfile(rctx.UserID)
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
