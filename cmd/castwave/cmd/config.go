package cmd

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/castwave/internal/config"
	"github.com/jmylchreest/castwave/pkg/bytesize"
	"github.com/jmylchreest/castwave/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing castwave configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

You can redirect this output to a file to create a configuration template:

  castwave config dump > config.yaml

Configuration can be set via:
  - Config file (config.yaml, .castwave.yaml, /etc/castwave/config.yaml)
  - Environment variables (CASTWAVE_SERVER_PORT, CASTWAVE_CAST_CONNECT_TIMEOUT, etc.)
  - Command-line flags (for some options)

Environment variables use the CASTWAVE_ prefix and underscores for nesting.
Example: server.port -> CASTWAVE_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations and byte sizes for
// human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		switch fv := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(fv)
		case config.ByteSize:
			result[key] = bytesize.Format(bytesize.Size(fv))
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(_ *cobra.Command, _ []string) error {
	v := viper.New()
	config.SetDefaults(v)

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("loading default config: %w", err)
	}

	cfgMap := toMap(cfg)

	yamlData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# castwave Configuration File\n")
	b.WriteString("# ============================\n")
	b.WriteString("#\n")
	b.WriteString("# All values shown below are defaults.\n")
	b.WriteString("# Duration format: 30s, 5m, 1h\n")
	b.WriteString("# Size format: 5MB, 1GB\n")
	b.WriteString("#\n")
	b.WriteString("# Environment variable overrides:\n")
	b.WriteString("#   CASTWAVE_SERVER_HOST, CASTWAVE_SERVER_PORT\n")
	b.WriteString("#   CASTWAVE_PROXY_RETRY_ATTEMPTS, CASTWAVE_PROXY_MAX_RESPONSE_SIZE\n")
	b.WriteString("#   CASTWAVE_CAST_CONNECT_TIMEOUT, CASTWAVE_CAST_HEARTBEAT_INTERVAL\n")
	b.WriteString("#   CASTWAVE_LOGGING_LEVEL, CASTWAVE_LOGGING_FORMAT\n")
	b.WriteString("#   etc.\n")
	b.WriteString("#\n\n")
	b.Write(yamlData)

	fmt.Print(b.String())
	return nil
}
