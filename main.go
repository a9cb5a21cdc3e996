package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/lanrat/zonepush/config"
	"github.com/lanrat/zonepush/liquidns"
	"github.com/lanrat/zonepush/plan"
	"github.com/lanrat/zonepush/psl"
	"github.com/lanrat/zonepush/save"
	"github.com/lanrat/zonepush/status"
	"github.com/lanrat/zonepush/zone"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// exitError carries the process exit status for an error
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageError(cmd *cobra.Command, err error) error {
	_ = cmd.Usage()
	return &exitError{code: 2, err: err}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zonepush -u <username> -p <password> -f <filename>",
		Short: "Import a zonefile into LiquiDNS",
		Long: `Parse a zonefile and insert its records in LiquiDNS.

The first line of the file declares the zone apex ("$ORIGIN example.com.") and
the second one the default TTL ("$TTL 3600"). The file can hold several zones,
each one introduced by the same pair of lines. The last line is ignored.`,
		Version:       versionString(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.SetVersionTemplate(versionTemplate)
	cmd.SetFlagErrorFunc(usageError)

	flags := cmd.Flags()
	flags.BoolP("version", "V", false, "print the version number of the importer")
	flags.BoolP("verbose", "v", false, "print more detailed status messages and confirm the parsed zone")
	flags.StringP("file", "f", "", "source zone file, can contain many zones (.gz is decompressed)")
	flags.StringP("username", "u", "", "LiquiDNS username (env ZONEPUSH_USERNAME)")
	flags.StringP("password", "p", "", "LiquiDNS password (env ZONEPUSH_PASSWORD)")
	flags.BoolP("dry-run", "n", false, "print the push plan as YAML instead of pushing it")
	flags.BoolP("yes", "y", false, "do not ask for confirmation in verbose mode")
	flags.String("config", "", "INI configuration file (env ZONEPUSH_CONFIG)")
	flags.String("api-url", "", "LiquiDNS base URL (default "+liquidns.DefaultBaseURL+")")
	flags.String("nameserver", "", "nameserver written into NS records (default "+plan.DefaultNameserver+")")
	flags.String("record-label", "", "description stored with every created record")
	flags.Int("parallel", 4, "number of parallel API calls")
	flags.String("save", "", "write the normalized zone to this file before pushing")
	flags.String("status-port", "", "serve push progress as JSON on this port")
	flags.String("psl-file", "", "public suffix list used to check zone apexes")
	flags.String("log-file", "", "write logs to this file, rotated")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)
	logger.Debug("Verbose printing enabled")

	if len(args) > 0 {
		_ = cmd.Usage()
		logger.Warnf("ignoring unexpected arguments: %v", args)
	}
	if err := cfg.Validate(); err != nil {
		return usageError(cmd, err)
	}
	ctx := cmd.Context()

	text, err := zone.ReadFile(cfg.File)
	if err != nil {
		return fmt.Errorf("could not open file: %w", err)
	}
	zones, err := zone.Parse(text)
	if err != nil {
		return err
	}
	for _, z := range zones {
		logger.Infof("domain: %s (%d records)", z.Apex, len(z.Records))
	}
	if err := checkApexes(cfg, zones, logger); err != nil {
		return err
	}

	if cfg.Push.SavePath != "" {
		n, err := save.Zones(cfg.Push.SavePath, zones)
		if err != nil {
			return fmt.Errorf("saving normalized zone: %w", err)
		}
		logger.Infof("saved %d records to %s", n, cfg.Push.SavePath)
	}

	if cfg.Verbose && !cfg.Yes {
		if err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), zones); err != nil {
			if errors.Is(err, errUserCancelled) {
				return &exitError{code: 2, err: err}
			}
			return err
		}
	}

	records := zones.Records()
	p := plan.Build(records, cfg.API.Nameserver)
	logger.Infof("plan: %d domains, %d records (%d skipped)", len(p.Domains), len(p.Records), plan.Skipped(records))

	if cfg.DryRun {
		return p.WriteYAML(cmd.OutOrStdout())
	}

	tracker := status.New()
	if cfg.Push.StatusPort != "" {
		if err := tracker.Serve(ctx, cfg.Push.StatusPort, logger); err != nil {
			return fmt.Errorf("starting status server: %w", err)
		}
	}

	client, err := liquidns.New(cfg.API.URL,
		liquidns.WithLogger(logger),
		liquidns.WithRecordLabel(cfg.API.RecordLabel),
	)
	if err != nil {
		return err
	}
	logger.Debugf("Logging in with username: %s", cfg.Username)
	if err := client.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("failed to login: %w", err)
	}

	err = push(ctx, client, p, cfg.Push.Parallel, tracker, logger)
	s := tracker.Snapshot()
	logger.Infof("pushed %d of %d calls in %s (%d failed)", s.Completed, s.Total, s.Runtime, s.Failed)
	return err
}

// checkApexes warns about apexes that cannot be hosted as a domain of their own.
func checkApexes(cfg *config.Config, zones zone.Zones, logger log.FieldLogger) error {
	checker := psl.New()
	if cfg.Push.PSLFile != "" {
		var err error
		checker, err = psl.LoadFile(cfg.Push.PSLFile)
		if err != nil {
			return fmt.Errorf("loading public suffix list: %w", err)
		}
	}
	for _, z := range zones {
		registrable, err := checker.Registrable(z.Apex)
		if err != nil {
			logger.Warnf("%v", err)
			continue
		}
		if registrable != z.Apex {
			logger.Debugf("%s is a sub-zone of %s", z.Apex, registrable)
		}
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newRootCmd(), os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs cmd and returns the process exit status.
func execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	code := 1
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	if errors.Is(err, errUserCancelled) {
		fmt.Fprintln(stderr, "Canceled by user")
	} else {
		log.Error(err)
	}
	return code
}
