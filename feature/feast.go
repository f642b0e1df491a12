package feature

import (
	"context"
	"fmt"
	"strings"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	"github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// onlineStore 抽象 Feast SDK 的在线特征查询，测试时可替换。
type onlineStore interface {
	GetOnlineFeatures(ctx context.Context, req *feastsdk.OnlineFeaturesRequest) (*feastsdk.OnlineFeaturesResponse, error)
}

// FeastSource 从 Feast 在线特征库拉取用户的初始兴趣向量，
// 用于冷启动补水（profile.WarmStartSource 实现）：新注册用户
// 还没有任何订单/行为时，用离线算好的兴趣特征起步。
//
// 特征引用格式为 "<feature_view>:<interest_key>"，例如
// "user_interest:category_boys"，冒号后的部分即兴趣键。
type FeastSource struct {
	client onlineStore

	// Project Feast 项目名
	Project string

	// EntityKey 实体键名，例如 "user_id"
	EntityKey string

	// Features 要拉取的特征引用列表
	Features []string
}

// NewFeastSource 连接 Feast Feature Server（gRPC，默认端口 6565）。
func NewFeastSource(host string, port int, project, entityKey string, features []string) (*FeastSource, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}
	return &FeastSource{
		client:    client,
		Project:   project,
		EntityKey: entityKey,
		Features:  features,
	}, nil
}

// UserInterests 返回该用户的初始兴趣向量；无特征数据时返回空向量。
func (s *FeastSource) UserInterests(ctx context.Context, userID string) (core.FeatureVector, error) {
	interests := make(core.FeatureVector)
	if len(s.Features) == 0 {
		return interests, nil
	}

	req := &feastsdk.OnlineFeaturesRequest{
		Features: s.Features,
		Entities: []feastsdk.Row{
			{s.EntityKey: feastsdk.StrVal(userID)},
		},
		Project: s.Project,
	}
	resp, err := s.client.GetOnlineFeatures(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return interests, nil
	}

	for _, ref := range s.Features {
		val, ok := rows[0][ref]
		if !ok {
			continue
		}
		w, ok := numericValue(val)
		if !ok || w <= 0 {
			continue
		}
		if w > core.MaxInterest {
			w = core.MaxInterest
		}
		interests[interestKey(ref)] = w
	}
	return interests, nil
}

// interestKey 去掉特征引用的 "<feature_view>:" 前缀。
func interestKey(ref string) string {
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// numericValue 把 Feast 的 proto Value 转成 float64。
func numericValue(v *types.Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.GetVal().(type) {
	case *types.Value_DoubleVal:
		return val.DoubleVal, true
	case *types.Value_FloatVal:
		return float64(val.FloatVal), true
	case *types.Value_Int64Val:
		return float64(val.Int64Val), true
	case *types.Value_Int32Val:
		return float64(val.Int32Val), true
	default:
		return 0, false
	}
}
