package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Default returns a Config populated with `default` tags only
// universe.index 와 backtest 기간은 호출자가 채워야 함
func Default() *Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		// default 태그는 컴파일 시점 상수이므로 실패하면 프로그래밍 오류
		panic(fmt.Sprintf("strategyconfig: invalid default tag: %v", err))
	}
	return &cfg
}

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes YAML over the defaults and validates the result
// 기본값 위에 디코딩하므로 skip_months: 0 같은 명시적 0 값이 유지됨
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(cfg); err != nil {
		return nil, ValidationError{"yaml", err.Error()}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the Config back to YAML (sweep variants have no source file)
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewDecisionSnapshot creates a snapshot for audit
func NewDecisionSnapshot(cfg *Config, yamlData []byte, gitCommit, dataSnapshotID string) (*DecisionSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	if yamlData == nil {
		if yamlData, err = Marshal(cfg); err != nil {
			return nil, err
		}
	}

	return &DecisionSnapshot{
		ConfigHash:     hash,
		ConfigYAML:     string(yamlData),
		StrategyID:     cfg.Meta.StrategyID,
		GitCommit:      gitCommit,
		DataSnapshotID: dataSnapshotID,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
