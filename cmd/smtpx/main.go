package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"smtpx/internal/enum"
	"smtpx/internal/proxy"
	"smtpx/internal/queue"
	"smtpx/internal/store"
)

type options struct {
	target       string
	userlist     string
	user         string
	method       string
	fromAddr     string
	domain       string
	port         int
	threads      int
	wait         int
	rateLimit    float64
	socksURL     string
	redisAddr    string
	redisPass    string
	redisDB      int
	redisQueue   string
	redisResults string
	storeDSN     string
	verbose      bool
	debug        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "smtpx -t target [-U userlist | -u user]",
		Short: "SMTP user enumeration via VRFY, EXPN and RCPT TO",
		Long: `smtpx probes an SMTP server to determine which candidate usernames
correspond to real mailboxes, using the VRFY, EXPN and RCPT TO commands.
It is meant for authorized security assessments.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.target, "target", "t", "", "target SMTP server (required)")
	f.StringVarP(&opts.userlist, "userlist", "U", "", "path to a file with usernames, one per line")
	f.StringVarP(&opts.user, "user", "u", "", "single username to test")
	f.StringVarP(&opts.method, "method", "M", string(enum.MethodVRFY), "enumeration method: VRFY, EXPN or RCPT")
	f.StringVarP(&opts.fromAddr, "from-addr", "f", enum.DefaultMailFrom, "MAIL FROM address, used only in RCPT mode")
	f.StringVarP(&opts.domain, "domain", "D", "", "domain to append to usernames to make email addresses")
	f.IntVarP(&opts.port, "port", "p", enum.DefaultPort, "TCP port on which the SMTP service runs")
	f.IntVarP(&opts.threads, "threads", "T", enum.DefaultWorkers, "number of concurrent workers")
	f.IntVarP(&opts.wait, "wait", "w", 10, "wait a maximum of n seconds for each reply")
	f.Float64Var(&opts.rateLimit, "rate", 0, "max probes per second across all workers (0 = unlimited)")
	f.StringVar(&opts.socksURL, "socks", "", "SOCKS5 proxy URL for probe connections (socks5://host:port)")
	f.StringVar(&opts.redisAddr, "redis", "", "redis address for a shared candidate queue (host:port)")
	f.StringVar(&opts.redisPass, "redis-pass", "", "redis password")
	f.IntVar(&opts.redisDB, "redis-db", 0, "redis database number")
	f.StringVar(&opts.redisQueue, "redis-queue", "smtpx:candidates", "redis list holding candidate usernames")
	f.StringVar(&opts.redisResults, "redis-results", "smtpx:valid", "redis list receiving valid addresses")
	f.StringVar(&opts.storeDSN, "store", "", "postgres DSN for persisting the final report")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	f.BoolVarP(&opts.debug, "debug", "d", false, "debugging output")
	cmd.MarkFlagRequired("target")

	return cmd
}

func run(ctx context.Context, opts options) error {
	if opts.user != "" && opts.userlist != "" {
		return fmt.Errorf("cannot specify both --user and --userlist")
	}

	var (
		usernames []string
		qc        *queue.Client
		err       error
	)
	switch {
	case opts.user != "":
		usernames = []string{opts.user}
	case opts.userlist != "":
		usernames, err = loadUserlist(opts.userlist)
		if err != nil {
			return err
		}
	case opts.redisAddr != "":
		qc, err = queue.New(ctx, opts.redisAddr, opts.redisPass, opts.redisDB)
		if err != nil {
			return err
		}
		defer qc.Close()
		usernames, err = qc.DrainCandidates(ctx, opts.redisQueue)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --userlist, --user or --redis must be specified")
	}
	if len(usernames) == 0 {
		return fmt.Errorf("no usernames to test")
	}

	cfg := enum.Config{
		Host:     opts.target,
		Port:     opts.port,
		Method:   enum.Method(opts.method),
		MailFrom: opts.fromAddr,
		Domain:   opts.domain,
		Timeout:  time.Duration(opts.wait) * time.Second,
		Workers:  opts.threads,
		Rate:     opts.rateLimit,
		Debug:    opts.debug,
	}

	dialer, err := proxy.New(opts.socksURL, cfg.Timeout)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(usernames),
		progressbar.OptionSetDescription("Enumerating users"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	logger := newLogger(opts)
	eng, err := enum.New(cfg, enum.Options{
		Dialer: dialer,
		Logger: &logger,
		OnProgress: func(enum.ProgressEvent) {
			bar.Add(1)
		},
		OnRetry: func(count int) {
			bar.ChangeMax(len(usernames) + count)
			if opts.verbose {
				color.Yellow("Retrying %d failed users with slower settings...", count)
			}
		},
	})
	if err != nil {
		return err
	}

	if opts.verbose {
		color.Cyan("Starting enumeration with method %s", cfg.Method)
		if cfg.Domain != "" {
			color.Cyan("Using domain: %s", cfg.Domain)
		}
		color.Cyan("Target: %s:%d", cfg.Host, cfg.Port)
		color.Cyan("Testing %d users with %d threads", len(usernames), cfg.Workers)
	}

	report, err := eng.Run(ctx, usernames)
	if err != nil {
		return err
	}
	bar.Finish()

	printReport(report, opts, eng.TraceLog())

	if qc != nil {
		if err := qc.PublishValid(ctx, opts.redisResults, report.ValidUsers); err != nil {
			return err
		}
	}
	if opts.storeDSN != "" {
		st, err := store.Open(ctx, opts.storeDSN)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveReport(ctx, report); err != nil {
			return err
		}
		if opts.verbose {
			color.Cyan("Report %s saved to store", report.RunID)
		}
	}
	return nil
}

func printReport(r enum.Report, opts options, trace []string) {
	color.Cyan("\nEnumeration complete (time taken: %.2f seconds)", r.Elapsed.Seconds())

	if opts.debug && len(trace) > 0 {
		color.Yellow("\nDebug output:")
		for _, line := range trace {
			fmt.Println(line)
		}
	}

	if r.FailedCount > 0 {
		color.Yellow("%d users failed after retries", r.FailedCount)
	}

	if len(r.ValidUsers) == 0 {
		color.Yellow("No valid users found.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Valid User"})
	for i, u := range r.ValidUsers {
		t.AppendRow(table.Row{i + 1, u})
	}
	t.Render()
	color.Green("%d valid users found (run %s)", len(r.ValidUsers), r.RunID)
}

// loadUserlist reads one username per line, skipping blanks.
func loadUserlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read userlist: %w", err)
	}
	defer f.Close()

	var users []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			users = append(users, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading userlist: %w", err)
	}
	return users, nil
}

func newLogger(opts options) zerolog.Logger {
	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.InfoLevel
	}
	if opts.debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}
