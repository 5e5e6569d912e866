package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/castwave/internal/cast"
	"github.com/jmylchreest/castwave/internal/caster"
	"github.com/jmylchreest/castwave/internal/config"
	"github.com/jmylchreest/castwave/internal/session"
)

var (
	castContentType string
	castHeaders     []string
	castSubtitles   []string
)

var castCmd = &cobra.Command{
	Use:   "cast",
	Short: "Drive a Google Cast receiver directly",
	Long:  `Load media onto, or stop, a Google Cast receiver without going through the control API.`,
}

var castLoadCmd = &cobra.Command{
	Use:   "load <device-ip> <url>",
	Short: "Launch or adopt the media receiver app and load a URL",
	Args:  cobra.ExactArgs(2),
	RunE:  runCastLoad,
}

var castStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active Cast session",
	RunE:  runCastStop,
}

func init() {
	castLoadCmd.Flags().StringVar(&castContentType, "content-type", "", "content type of the media (e.g. video/mp4)")
	castLoadCmd.Flags().StringArrayVar(&castHeaders, "header", nil, "header to forward to the proxy, as Key: Value (repeatable)")
	castLoadCmd.Flags().StringArrayVar(&castSubtitles, "subtitle", nil, "subtitle track, as url|language|label (repeatable)")

	castCmd.AddCommand(castLoadCmd)
	castCmd.AddCommand(castStopCmd)
	rootCmd.AddCommand(castCmd)
}

func buildFacade() (*caster.Facade, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return caster.New(cfg, session.New(), slog.Default()), nil
}

func runCastLoad(cmd *cobra.Command, args []string) error {
	facade, err := buildFacade()
	if err != nil {
		return err
	}

	headers, err := parseHeaders(castHeaders)
	if err != nil {
		return err
	}

	result, err := facade.CastLoadMedia(cmd.Context(), caster.LoadMediaRequest{
		DeviceIP:    args[0],
		URL:         args[1],
		ContentType: castContentType,
		Headers:     headers,
		Subtitles:   parseSubtitles(castSubtitles),
	})
	if err != nil {
		return fmt.Errorf("loading media: %w", err)
	}

	fmt.Println(result)
	return nil
}

func runCastStop(cmd *cobra.Command, _ []string) error {
	facade, err := buildFacade()
	if err != nil {
		return err
	}

	result, err := facade.CastControl(cmd.Context(), "stop")
	if err != nil {
		return fmt.Errorf("stopping cast session: %w", err)
	}

	fmt.Println(result)
	return nil
}

// parseHeaders turns "Key: Value" flag values into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --header %q, expected \"Key: Value\"", h)
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers, nil
}

// parseSubtitles turns "url|language|label" flag values into subtitle
// tracks, silently skipping the trailing fields if omitted.
func parseSubtitles(raw []string) []cast.SubtitleTrack {
	if len(raw) == 0 {
		return nil
	}
	tracks := make([]cast.SubtitleTrack, 0, len(raw))
	for _, s := range raw {
		parts := strings.SplitN(s, "|", 3)
		track := cast.SubtitleTrack{URL: parts[0]}
		if len(parts) > 1 {
			track.Language = parts[1]
		}
		if len(parts) > 2 {
			track.Label = parts[2]
		}
		tracks = append(tracks, track)
	}
	return tracks
}
