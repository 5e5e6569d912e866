package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/castwave/internal/caster"
	"github.com/jmylchreest/castwave/internal/config"
	"github.com/jmylchreest/castwave/internal/session"
)

var discoverJSON bool

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Browse the LAN for Google Cast receivers",
	Long:  `Browse the LAN over mDNS for Google Cast receivers and print what was found.`,
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}

	facade := caster.New(cfg, session.New(), slog.Default())

	devices, err := facade.CastDiscover(cmd.Context())
	if err != nil {
		return fmt.Errorf("discovering cast receivers: %w", err)
	}

	if discoverJSON {
		output, err := json.MarshalIndent(devices, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling devices: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(devices) == 0 {
		fmt.Println("No Cast receivers found.")
		return nil
	}
	for _, d := range devices {
		fmt.Printf("%s\t%s\n", d.IP, d.Name)
	}
	return nil
}
