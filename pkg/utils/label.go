package utils

import "strings"

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// Value 与 Source 的语义由业务自定义；引擎只提供标准化的合并规则。
// 推荐结果的 algorithms / reason 字段都由 Label 链路组装而来。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / hybrid / rank / filter ...
}

// MergeLabel 用于合并同名 Label，遵循“保留历史、可追踪”的默认策略。
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// Values 按合并规则拆出 Label 累积的全部取值（去重，保持首次出现顺序）。
// 用于把 algorithm Label 还原成贡献算法列表。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	parts := strings.Split(l.Value, "|")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
