// Command checklist inspects, fills in and submits checklist templates.
//
//	checklist rules --version 1
//	checklist render --site 42 --set smoke_detector=true
//	checklist validate --set smoke_detector=true
//	checklist submit --set smoke_detector=false --set exits=yes
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ezachrisen/checklist"
	"github.com/ezachrisen/checklist/cel"
	"github.com/ezachrisen/checklist/config"
	"github.com/ezachrisen/checklist/template"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(stdout io.Writer, args []string) error {
	root := newRootCmd(stdout)
	root.SetArgs(args)
	return root.Execute()
}

type app struct {
	out io.Writer

	configPath string
	templates  string
	database   string
	version    int64
	site       int64
	franchisee int64
	sets       []string
	verbose    bool

	cfg      config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *checklist.Metrics
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "checklist",
		Short:         "Inspect, fill in and submit checklist templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.verbose {
				a.printMetrics()
			}
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.templates, "templates", "", "template directory (overrides the configuration)")
	pf.StringVar(&a.database, "database", "", "SQLite database (overrides the configuration)")
	pf.Int64Var(&a.version, "version", 1, "template version ID")
	pf.Int64Var(&a.site, "site", 0, "ID of the site the checklist is for")
	pf.Int64Var(&a.franchisee, "franchisee", 0, "ID of the franchisee the checklist is for")

	root.AddCommand(a.rulesCmd(), a.renderCmd(), a.validateCmd(), a.submitCmd())
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}
	if a.templates != "" {
		cfg.Templates = a.templates
	}
	if a.database != "" {
		cfg.Database = a.database
	}
	a.cfg = cfg

	a.log, err = cfg.Logging.Build()
	if err != nil {
		return errors.Wrap(err, "building logger")
	}

	a.registry = prometheus.NewRegistry()
	a.metrics, err = checklist.NewMetrics(a.registry)
	if err != nil {
		return errors.Wrap(err, "registering metrics")
	}
	return nil
}

// addAnswerFlags registers the flags of the commands that fill in answers.
func (a *app) addAnswerFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&a.sets, "set", nil, "answer a question: field=value (repeatable; values are YAML)")
	cmd.Flags().BoolVar(&a.verbose, "verbose", false, "print the effect of every answer, and the engine counters at the end")
}

func (a *app) engineOptions() ([]checklist.EngineOption, error) {
	compiler, err := cel.NewCompiler()
	if err != nil {
		return nil, err
	}
	return []checklist.EngineOption{
		checklist.WithLogger(a.log),
		checklist.WithCompiler(compiler),
		checklist.WithMetrics(a.metrics),
	}, nil
}

// printMetrics prints every counter the command touched.
func (a *app) printMetrics() {
	mfs, err := a.registry.Gather()
	if err != nil {
		a.log.Warn("gathering metrics", zap.Error(err))
		return
	}
	tw := table.NewWriter()
	tw.SetTitle("METRICS")
	tw.AppendHeader(table.Row{"Counter", "Labels", "Value"})
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			tw.AppendRow(table.Row{mf.GetName(), strings.Join(labels, ","), humanize.Ftoa(m.GetCounter().GetValue())})
		}
	}
	tw.SetStyle(table.StyleLight)
	fmt.Fprintln(a.out, tw.Render())
}

func (a *app) engine(ctx context.Context) (*checklist.Engine, error) {
	c, err := template.Dir(a.cfg.Templates).FetchChecklist(ctx, a.version)
	if err != nil {
		return nil, errors.Wrap(err, "loading template")
	}
	opts, err := a.engineOptions()
	if err != nil {
		return nil, err
	}
	return checklist.NewEngine(c, opts...)
}

// start loads the template and assignees, starts a session and applies the
// --set answers in order.
func (a *app) start(ctx context.Context, opts ...checklist.SessionOption) (*checklist.Session, error) {
	req := checklist.LoadRequest{VersionID: a.version, Retail: a.cfg.Retail}
	switch {
	case a.franchisee != 0:
		req.AssigneeType, req.AssigneeID = checklist.AssigneeFranchisee, a.franchisee
	case a.site != 0:
		req.AssigneeType, req.AssigneeID = checklist.AssigneeSite, a.site
	}

	dir := template.Dir(a.cfg.Templates)
	l, err := checklist.Load(ctx, checklist.Sources{Templates: dir, Assignees: dir}, req)
	if err != nil {
		return nil, errors.Wrap(err, "loading checklist")
	}
	engineOpts, err := a.engineOptions()
	if err != nil {
		return nil, err
	}
	s, err := l.Start(engineOpts, append(a.cfg.SessionOptions(), opts...)...)
	if err != nil {
		return nil, err
	}

	for _, kv := range a.sets {
		id, v, err := parseAnswer(kv)
		if err != nil {
			s.Close()
			return nil, err
		}
		ch, err := s.SetValue(id, v)
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "answering %s", id)
		}
		if a.verbose {
			fmt.Fprintln(a.out, ch)
		}
	}
	return s, nil
}

// parseAnswer splits field=value. The value is decoded as YAML, so true is a
// bool, 5 a number and [a, b] a list. An empty value clears the answer.
func parseAnswer(kv string) (string, any, error) {
	id, raw, ok := strings.Cut(kv, "=")
	if !ok || id == "" {
		return "", nil, errors.Errorf("malformed answer %q, want field=value", kv)
	}
	if raw == "" {
		return id, nil, nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		v = raw
	}
	return id, v, nil
}
