package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"shelfnav/internal/bundle"
	"shelfnav/internal/client"
	"shelfnav/internal/config"
	"shelfnav/internal/device"
	"shelfnav/internal/listing"
	"shelfnav/internal/logging"
	"shelfnav/internal/nav"
	"shelfnav/internal/tui"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("no command provided")
	}
	switch cmd := args[0]; cmd {
	case "config":
		return handleConfig(args[1:])
	case "browse":
		return handleBrowse(ctx, args[1:])
	case "list":
		return handleList(ctx, args[1:])
	case "search":
		return handleSearch(ctx, args[1:])
	case "bundle":
		return handleBundle(ctx, args[1:])
	case "login":
		return handleLogin(ctx, args[1:])
	case "version":
		fmt.Println(version)
		return nil
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func usage() {
	fmt.Println(strings.TrimSpace(`shelfnav - terminal navigator for a remote e-book library

Usage:
  shelfnav <command> [flags]

Commands:
  config validate   Validate a YAML config file
  config print      Print the loaded config as JSON
  browse            Open the interactive navigator (optionally at a #fragment)
  list              Print a directory listing
  search            Search the whole library (empty query = recent files)
  bundle            Download a directory's files into one zip archive
  login             Verify credentials against the login endpoint
  version           Print version

Run 'shelfnav <command> -h' for flags.`))
}

// sessionEnv bundles what every subcommand needs.
type sessionEnv struct {
	cfg     *config.Config
	log     *logging.Logger
	cl      *client.Client
	session *nav.Session
}

func buildEnv(ctx context.Context, fs *flag.FlagSet, args []string) (*sessionEnv, error) {
	cfgPath := fs.String("config", os.Getenv("SHELFNAV_CONFIG"), "path to YAML config")
	user := fs.String("user", "", "login user (logs in before the command)")
	password := fs.String("password", os.Getenv("SHELFNAV_PASSWORD"), "login password")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	cl, err := client.New(cfg, log)
	if err != nil {
		return nil, err
	}
	caps := device.Detect(cfg.Device.Profile, os.Getenv("SHELFNAV_DEVICE"))
	env := &sessionEnv{
		cfg:     cfg,
		log:     log,
		cl:      cl,
		session: nav.NewSession(cfg, log, caps, cl),
	}
	if *user != "" {
		if err := cl.Login(ctx, *user, *password); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func handleConfig(args []string) error {
	if len(args) == 0 {
		return errors.New("config requires a subcommand: validate | print")
	}
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	cfgPath := fs.String("config", os.Getenv("SHELFNAV_CONFIG"), "path to YAML config")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	switch args[0] {
	case "validate":
		fmt.Println("ok")
		return nil
	case "print":
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	default:
		return fmt.Errorf("unknown config subcommand: %s", args[0])
	}
}

func handleLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	cfgPath := fs.String("config", os.Getenv("SHELFNAV_CONFIG"), "path to YAML config")
	user := fs.String("user", "", "login user")
	password := fs.String("password", os.Getenv("SHELFNAV_PASSWORD"), "login password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("login requires -user")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	cl, err := client.New(cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format))
	if err != nil {
		return err
	}
	if err := cl.Login(ctx, *user, *password); err != nil {
		return err
	}
	fmt.Println("login ok")
	return nil
}

func handleBrowse(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	env, err := buildEnv(ctx, fs, args)
	if err != nil {
		return err
	}
	if frag := fs.Arg(0); frag != "" {
		_ = os.Setenv("SHELFNAV_FRAGMENT", frag)
	}
	m := tui.New(env.cfg, env.log, env.session, env.cl)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

func handleList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	sortBy := fs.String("sort", "name", "sort field: name | date")
	desc := fs.Bool("desc", false, "sort descending")
	filter := fs.String("filter", "", "substring filter over author/title/ruby")
	env, err := buildEnv(ctx, fs, args)
	if err != nil {
		return err
	}

	frag := fs.Arg(0)
	view, err := env.session.Navigate(ctx, &frag, false)
	if err != nil {
		return describeAuthErr(err)
	}
	rows := view.Rows
	field := listing.ByNameIndex
	if *sortBy == "date" {
		field = listing.ByDate
	}
	listing.SortRows(rows, field, *desc)
	listing.ApplyFilter(rows, *filter)

	fmt.Println(view.Title)
	for i := range rows {
		r := &rows[i]
		if r.Filtered {
			continue
		}
		fmt.Printf("%-4s %-60s %s\n", r.Kind, r.Name, listing.FormatDate(r.Date))
	}
	return nil
}

func handleSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	env, err := buildEnv(ctx, fs, args)
	if err != nil {
		return err
	}
	view, err := env.session.Search(ctx, strings.Join(fs.Args(), " "))
	if err != nil {
		return describeAuthErr(err)
	}
	fmt.Println(view.Title)
	for _, e := range view.Entries {
		fmt.Printf("%-60s %s\n", e.DisplayName(), listing.FormatDate(e.Mtime))
	}
	return nil
}

func handleBundle(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bundle", flag.ContinueOnError)
	out := fs.String("out", "", "output archive path (default: <directory>.zip)")
	env, err := buildEnv(ctx, fs, args)
	if err != nil {
		return err
	}
	caps := env.session.Caps()
	if !caps.CanBundle {
		return fmt.Errorf("device profile %s cannot save local archives", caps.Profile)
	}

	frag := fs.Arg(0)
	view, err := env.session.Navigate(ctx, &frag, false)
	if err != nil {
		return describeAuthErr(err)
	}
	files := listing.SelectedFiles(view.Rows)
	if len(files) == 0 {
		return errors.New("directory has no downloadable files")
	}

	title := nav.DefaultTitle
	if p := view.Path; !p.IsRoot() {
		title = p[len(p)-1]
	}
	archive := *out
	if archive == "" {
		archive = title + ".zip"
	}
	f, err := os.Create(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	b := bundle.New(env.cl, env.log, env.cfg.Concurrency.BundleFetches)
	res, err := b.Bundle(ctx, title, files, f, func(p bundle.Progress) {
		switch p.Stage {
		case bundle.StageFetching:
			if p.Err != nil {
				env.log.Errorf("FAILED %s: %v", p.File, p.Err)
			} else {
				env.log.Infof("fetched %s (%d/%d)", p.File, p.Done, p.Total)
			}
		case bundle.StageArchiving:
			env.log.Infof("creating archive... %.1f%% (%s)", p.Percent, p.File)
		}
	})
	if err != nil {
		return err
	}
	if fi, err := f.Stat(); err == nil {
		fmt.Printf("wrote %s: %d files (%s), %d failed\n", archive, res.Archived, humanize.Bytes(uint64(fi.Size())), res.Failed)
	} else {
		fmt.Printf("wrote %s: %d files, %d failed\n", archive, res.Archived, res.Failed)
	}
	return nil
}

// describeAuthErr turns the auth sentinel into an actionable message.
func describeAuthErr(err error) error {
	if errors.Is(err, client.ErrUnauthenticated) {
		return errors.New("not authenticated: pass -user/-password or run 'shelfnav login'")
	}
	return err
}
