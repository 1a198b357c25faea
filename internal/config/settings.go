package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/predictplugin/internal/domain"
)

// Framework setting names shared with the host agent runtime.
const (
	SettingPrivateKey     = "EVM_PRIVATE_KEY"
	SettingProviderURL    = "EVM_PROVIDER_URL"
	SettingFactoryAddress = "PREDICTION_MARKET_FACTORY"
	SettingModeToken      = "MODE_TOKEN_ADDRESS"
)

var privateKeyPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidPrivateKey reports whether key is 0x followed by 64 hex characters.
func ValidPrivateKey(key string) bool {
	return privateKeyPattern.MatchString(key)
}

// SettingGetter resolves a named framework setting.
type SettingGetter interface {
	GetSetting(key string) (string, bool)
}

// GetterFunc adapts a plain function to SettingGetter.
type GetterFunc func(key string) (string, bool)

func (f GetterFunc) GetSetting(key string) (string, bool) { return f(key) }

// EnvSettings reads framework settings from the process environment.
var EnvSettings = GetterFunc(func(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
})

// Settings exposes a loaded Config through the framework's getSetting contract.
type Settings struct {
	cfg *Config
}

// NewSettings wraps cfg.
func NewSettings(cfg *Config) *Settings {
	return &Settings{cfg: cfg}
}

// GetSetting returns the value of one of the four framework settings.
func (s *Settings) GetSetting(key string) (string, bool) {
	var v string
	switch key {
	case SettingPrivateKey:
		v = s.cfg.Chain.PrivateKey
	case SettingProviderURL:
		v = s.cfg.Chain.ProviderURL
	case SettingFactoryAddress:
		v = s.cfg.Chain.FactoryAddress
	case SettingModeToken:
		v = s.cfg.Chain.CollateralToken
	default:
		return "", false
	}
	return v, v != ""
}

// PluginSettings is the validated set of framework settings.
type PluginSettings struct {
	PrivateKey      string
	ProviderURL     string
	FactoryAddress  common.Address
	CollateralToken common.Address
}

// LoadPluginSettings resolves and validates the framework settings through
// getter. expectedNetwork, when non-empty, must appear in the provider URL.
// Every failure is a ConfigurationError.
func LoadPluginSettings(getter SettingGetter, expectedNetwork string) (PluginSettings, error) {
	var out PluginSettings

	key, ok := getter.GetSetting(SettingPrivateKey)
	if !ok {
		return out, domain.ConfigurationError("%s is not set", SettingPrivateKey)
	}
	if !ValidPrivateKey(key) {
		return out, domain.ConfigurationError("%s must be 0x followed by 64 hex characters", SettingPrivateKey)
	}
	out.PrivateKey = key

	url, ok := getter.GetSetting(SettingProviderURL)
	if !ok {
		return out, domain.ConfigurationError("%s is not set", SettingProviderURL)
	}
	if expectedNetwork != "" && !strings.Contains(url, expectedNetwork) {
		return out, domain.ConfigurationError("%s must point at %s", SettingProviderURL, expectedNetwork)
	}
	out.ProviderURL = url

	factory, ok := getter.GetSetting(SettingFactoryAddress)
	if !ok || !common.IsHexAddress(factory) {
		return out, domain.ConfigurationError("%s must be a 0x-prefixed 40-hex-char address", SettingFactoryAddress)
	}
	out.FactoryAddress = common.HexToAddress(factory)

	if token, ok := getter.GetSetting(SettingModeToken); ok {
		if !common.IsHexAddress(token) {
			return out, domain.ConfigurationError("%s must be a 0x-prefixed 40-hex-char address", SettingModeToken)
		}
		out.CollateralToken = common.HexToAddress(token)
	}

	return out, nil
}
