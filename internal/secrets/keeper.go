package secrets

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sm "github.com/keeper-security/secrets-manager-go/core"
)

// KSM configuration sources
const (
	EnvKSMConfig       = "KSM_CONFIG_BASE64"
	DockerSecretKSMCfg = "ksm_config"
)

// ErrNoKSMConfig is returned when no Keeper configuration is available.
var ErrNoKSMConfig = errors.New("no KSM configuration: set KSM_CONFIG_BASE64 or mount the ksm_config secret")

// NewKeeperFromEnvironment creates a secrets manager client from the
// KSM_CONFIG_BASE64 variable or, failing that, the ksm_config docker secret.
func NewKeeperFromEnvironment(getenv func(string) string, secretsDir string) (NotationSource, error) {
	var raw string
	if v := getenv(EnvKSMConfig); v != "" {
		raw = v
	} else {
		data, err := os.ReadFile(filepath.Join(secretsDir, DockerSecretKSMCfg)) // #nosec G304 - fixed secret name
		if err != nil {
			return nil, ErrNoKSMConfig
		}
		raw = string(data)
	}

	cfg, err := ParseKSMConfig(raw)
	if err != nil {
		return nil, err
	}
	return NewKeeper(cfg)
}

// NewKeeper creates a secrets manager client from a parsed configuration.
func NewKeeper(cfg map[string]string) (NotationSource, error) {
	client := sm.NewSecretsManager(&sm.ClientOptions{
		Config: sm.NewMemoryKeyValueStorage(cfg),
	})
	if client == nil {
		return nil, errors.New("failed to create secrets manager client")
	}
	return client, nil
}

// ParseKSMConfig accepts the JSON configuration exported by Keeper, either
// verbatim or base64 encoded, and checks the required keys.
func ParseKSMConfig(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoKSMConfig
	}

	data := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 config: %w", err)
		}
		data = decoded
	}

	var cfg map[string]string
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for _, field := range []string{"clientId", "privateKey", "appKey"} {
		if cfg[field] == "" {
			return nil, fmt.Errorf("missing required field: %s", field)
		}
	}
	return cfg, nil
}
