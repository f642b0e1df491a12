package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bouzaHichem/damio-kids-backend-sub000/core"
)

// Parse 从 YAML 字节解析引擎配置。只写关心的字段即可，
// 零值字段用 Complete 补成默认值。
//
// 示例：
//
//	hybrid:
//	  collaborative: 0.4
//	  content: 0.3
//	  popularity: 0.3
//	decay_factor: 0.05
//	recommendation_ttl: 600
func Parse(data []byte) (core.Config, error) {
	var cfg core.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return core.Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg.Complete(), nil
}

// LoadFile 从 YAML 文件加载引擎配置。
func LoadFile(path string) (core.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}
