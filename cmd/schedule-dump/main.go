// Command schedule-dump загружает страницу ROE и печатает разобранные графики.
//
// Использование:
//
//	schedule-dump --subqueue 3.2
//	schedule-dump --file page.html --fingerprints
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"roe-outage-bot/internal/adapters/scraper"
	"roe-outage-bot/internal/domain"
	"roe-outage-bot/internal/usecase/schedule"
)

type dumpConfig struct {
	SourceURL string        `envconfig:"SOURCE_URL" default:"https://www.roe.vsei.ua/disconnections/"`
	Timeout   time.Duration `envconfig:"SOURCE_TIMEOUT" default:"25s"`
	TZ        string        `envconfig:"TZ" default:"Europe/Kyiv"`
	Subqueues []string      `envconfig:"SUBQUEUES" default:"1.1,1.2,2.1,2.2,3.1,3.2,4.1,4.2,5.1,5.2,6.1,6.2"`
}

func main() {
	_ = godotenv.Load(".env")
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		cfg          dumpConfig
		sourceURL    string
		file         string
		subqueue     string
		fingerprints bool
		verbose      bool
	)
	cmd := &cobra.Command{
		Use:          "schedule-dump",
		Short:        "Print ROE outage schedules parsed from the live page or a saved HTML file",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := envconfig.Process("", &cfg); err != nil {
				return err
			}
			if sourceURL != "" {
				cfg.SourceURL = sourceURL
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

			loc, err := time.LoadLocation(cfg.TZ)
			if err != nil {
				return fmt.Errorf("load location %q: %w", cfg.TZ, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			doc, err := readDocument(ctx, cfg, file)
			if err != nil {
				return err
			}
			snap := scraper.NewParser(cfg.Subqueues, logger).Parse(doc)
			if !snap.TableFound {
				return errors.New("таблица с подочередями не найдена")
			}

			labels := cfg.Subqueues
			if subqueue != "" {
				labels = []string{subqueue}
			}
			dump(cmd.OutOrStdout(), snap, labels, fingerprints, time.Now().In(loc))
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceURL, "url", "", "Schedule page URL (defaults to SOURCE_URL)")
	cmd.Flags().StringVar(&file, "file", "", "Read HTML from a file instead of fetching")
	cmd.Flags().StringVar(&subqueue, "subqueue", "", "Print only this subqueue")
	cmd.Flags().BoolVar(&fingerprints, "fingerprints", false, "Print schedule fingerprints")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	return cmd
}

func readDocument(ctx context.Context, cfg dumpConfig, file string) ([]byte, error) {
	if file != "" {
		return os.ReadFile(file)
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	return scraper.NewHTTPFetcher(cfg.SourceURL, cfg.Timeout, 0).Fetch(ctx)
}

func dump(w io.Writer, snap domain.Snapshot, labels []string, fingerprints bool, now time.Time) {
	if snap.UpdateMarker != "" {
		fmt.Fprintln(w, snap.UpdateMarker)
		fmt.Fprintln(w)
	}
	for _, label := range labels {
		days := snap.For(label)
		fmt.Fprintln(w, schedule.FormatSchedule(label, days, "", now))
		tr, ok := schedule.Project(days, now)
		fmt.Fprintln(w, schedule.FormatNext(tr, ok, now))
		if fingerprints {
			fmt.Fprintf(w, "fingerprint: %s\n", schedule.Fingerprint(days))
		}
		fmt.Fprintln(w)
	}
}
