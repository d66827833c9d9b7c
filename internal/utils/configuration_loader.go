package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorConstant            = "."
	environmentVariableSeparatorConstant       = "_"
	sliceDecodeSeparatorConstant               = ","
	embeddedConfigurationErrorTemplateConstant = "unable to merge embedded configuration: %w"
	configurationFileErrorTemplateConstant     = "unable to read configuration file: %w"
	configurationDecodeErrorTemplateConstant   = "unable to decode configuration: %w"
)

// LoadedConfiguration describes where the effective configuration came from.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader layers embedded defaults, a configuration file and environment
// variables into a typed configuration structure.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// NewConfigurationLoader builds a loader that searches searchPaths for configurationName.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string{}, searchPaths...),
	}
}

// SetEmbeddedConfiguration registers configuration content that sits between the
// programmatic defaults and any configuration file.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(content []byte, contentType string) {
	loader.embeddedConfiguration = append([]byte{}, content...)
	loader.embeddedConfigurationType = contentType
}

// LoadConfiguration decodes the layered configuration into target. An explicit
// configurationFilePath must exist; searched files are optional.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	configuration := viper.New()
	for key, value := range defaultValues {
		configuration.SetDefault(key, value)
	}

	if len(loader.embeddedConfiguration) > 0 {
		configuration.SetConfigType(loader.embeddedConfigurationType)
		if mergeError := configuration.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationErrorTemplateConstant, mergeError)
		}
	}

	configuration.SetConfigType(loader.configurationType)
	trimmedFilePath := strings.TrimSpace(configurationFilePath)
	if len(trimmedFilePath) > 0 {
		configuration.SetConfigFile(trimmedFilePath)
	} else {
		configuration.SetConfigName(loader.configurationName)
		for _, searchPath := range loader.searchPaths {
			configuration.AddConfigPath(searchPath)
		}
	}

	if readError := configuration.MergeInConfig(); readError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if len(trimmedFilePath) > 0 || !errors.As(readError, &notFoundError) {
			return LoadedConfiguration{}, fmt.Errorf(configurationFileErrorTemplateConstant, readError)
		}
	}

	if len(loader.environmentPrefix) > 0 {
		configuration.SetEnvPrefix(loader.environmentPrefix)
	}
	configuration.SetEnvKeyReplacer(strings.NewReplacer(environmentKeySeparatorConstant, environmentVariableSeparatorConstant))
	configuration.AutomaticEnv()

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(sliceDecodeSeparatorConstant),
	))
	if decodeError := configuration.Unmarshal(target, decodeHook); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplateConstant, decodeError)
	}

	return LoadedConfiguration{ConfigFileUsed: configuration.ConfigFileUsed()}, nil
}
