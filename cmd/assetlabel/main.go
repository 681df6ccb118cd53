package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/app"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/config"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/label"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/logging"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/mdm"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/printer"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/reminder"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/tui"
)

func main() {
	var configPath string
	var command string
	var query string
	var id string
	var debug bool
	flag.StringVar(&configPath, "config", "assetlabel.yaml", "path to config file")
	flag.StringVar(&command, "command", "tui", "command to run (tui|search|print|list|remind)")
	flag.StringVar(&query, "query", "", "asset tag, serial number or name to look up")
	flag.StringVar(&id, "id", "", "device id to print, e.g. computer_1042")
	flag.BoolVar(&debug, "debug", false, "verbose logging; remind notifies on every weekday minute")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}
	level := logging.ParseLevel(cfg.Logging.Level)
	if debug {
		level = logging.LevelDebug
		cfg.Reminder.Debug = true
	}
	logPath := cfg.Logging.Path
	if command == "tui" && logPath == "" {
		// the terminal belongs to the UI
		logPath = filepath.Join(os.TempDir(), "assetlabel.log")
	}
	logger, err := logging.New(logPath, level)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if command == "remind" {
		if err := runRemind(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
			fail(logger, err)
		}
		return
	}

	maybePromptClientSecret(cfg)
	if err := cfg.Validate(); err != nil {
		fail(logger, err)
	}
	svc, err := newService(cfg, logger)
	if err != nil {
		fail(logger, err)
	}

	switch command {
	case "tui":
		err = tui.Run(ctx, svc)
	case "search":
		err = runSearch(ctx, svc, query)
	case "print":
		err = runPrint(ctx, svc, query, id)
	case "list":
		err = runList(ctx, svc)
	default:
		fmt.Println("unknown command", command)
		os.Exit(1)
	}
	if err != nil {
		fail(logger, err)
	}
}

func fail(logger *logging.Logger, err error) {
	logger.Errorf("%v", err)
	fmt.Fprintln(os.Stderr, app.StatusMessage(err))
	os.Exit(1)
}

func newService(cfg *config.Config, logger *logging.Logger) (*app.Service, error) {
	normalizer := inventory.NewNormalizer(inventory.LadderByName(cfg.Inventory.Ladder), cfg.Inventory.PrimaryDisk)
	client := mdm.NewClient(cfg.MDM, mdm.WithLogger(logger), mdm.WithNormalizer(normalizer))

	tmpl, err := loadTemplate(cfg.Label.AssetsDir, logger)
	if err != nil {
		return nil, err
	}
	composer, err := label.NewComposer(tmpl, label.LayoutFromConfig(cfg.Label), cfg.Label.TempDir)
	if err != nil {
		return nil, err
	}

	opts := []printer.SubmitterOption{printer.WithLogger(logger)}
	if cfg.Printer.SNMP.Enabled {
		opts = append(opts, printer.WithChecker(printer.NewProbe(cfg.Printer.SNMP, logger)))
	}
	submitter := printer.NewSubmitter(cfg.Printer, opts...)

	return app.NewService(client, composer, submitter, client.DeepLink, logger), nil
}

func loadTemplate(dir string, logger *logging.Logger) (*label.Template, error) {
	if dir == "" {
		return label.DefaultTemplate()
	}
	tmpl, err := label.LoadTemplate(dir)
	if err != nil {
		return nil, fmt.Errorf("label assets %s: %w", dir, err)
	}
	logger.Debugf("label template loaded from %s", dir)
	return tmpl, nil
}

func runSearch(ctx context.Context, svc *app.Service, query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search needs -query")
	}
	idx, err := svc.Load(ctx)
	if err != nil {
		return err
	}
	for _, m := range idx.Search(query) {
		fmt.Printf("%s\t%s\n", m.Display, m.ID)
	}
	return nil
}

func runPrint(ctx context.Context, svc *app.Service, query, id string) error {
	if query == "" && id == "" {
		return fmt.Errorf("print needs -query or -id")
	}
	idx, err := svc.Load(ctx)
	if err != nil {
		return err
	}
	if id != "" {
		if err := svc.Print(ctx, idx, id); err != nil {
			return err
		}
		fmt.Printf("printed label for %s\n", id)
		return nil
	}
	rec, err := svc.PrintQuery(ctx, idx, query)
	if err != nil {
		return err
	}
	fmt.Printf("printed label for %s (%s)\n", rec.Name, rec.ID)
	return nil
}

func runList(ctx context.Context, svc *app.Service) error {
	idx, err := svc.Load(ctx)
	if err != nil {
		return err
	}
	counts := map[inventory.DeviceClass]int{}
	for _, rec := range idx.Records() {
		counts[rec.Class]++
	}
	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, string(c))
	}
	sort.Strings(classes)
	for _, c := range classes {
		fmt.Printf("%-10s %d\n", c, counts[inventory.DeviceClass(c)])
	}
	fmt.Printf("%-10s %d\n", "total", idx.Len())
	return nil
}

func runRemind(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	s, err := reminder.New(cfg.Reminder, logger)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func maybePromptClientSecret(cfg *config.Config) {
	if cfg.MDM.ClientSecret != "" || cfg.MDM.ClientID == "" {
		return
	}
	if fi, err := os.Stdin.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return
	}
	fmt.Printf("Enter MDM client secret for %s: ", cfg.MDM.ClientID)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		panic(fmt.Errorf("read MDM client secret: %w", err))
	}
	cfg.MDM.ClientSecret = strings.TrimSpace(line)
}
