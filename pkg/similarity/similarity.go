// Package similarity 提供推荐链路用到的两个相似度核：
// 稀疏向量的余弦相似度（content-based）与 ID 集合的 Jaccard 相似度
// （collaborative 的邻居匹配）。权重全部非负，因此两者的值域都是 [0,1]。
package similarity

import "math"

// Cosine 计算两个稀疏特征向量的余弦相似度：dot / (‖a‖·‖b‖)。
// 任一向量全零时返回 0。对称：Cosine(a,b) == Cosine(b,a)。
func Cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for k, va := range a {
		normA += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Jaccard 计算两个 ID 集合的相似度：|A∩B| / |A∪B|。
// 并集为空返回 0。对称。
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SetOf 把 ID 列表转成集合（重复 ID 合并）。
func SetOf(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
