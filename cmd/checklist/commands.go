package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ezachrisen/checklist"
	"github.com/ezachrisen/checklist/store/sqlite"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *app) rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the rule hierarchy of a template",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, e.Tree())
			for _, s := range e.StaleReferences() {
				fmt.Fprintf(a.out, "warning: %v\n", s)
			}
			return nil
		},
	}
}

func (a *app) renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Answer questions and print the resulting render props",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.start(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rp := s.Props()
			fmt.Fprintln(a.out, rp)
			if s.Snapshot().UseTabs {
				fmt.Fprintf(a.out, "Tabs: %s\n", strings.Join(rp.Tabs(), ", "))
			}
			return nil
		},
	}
	a.addAnswerFlags(cmd)
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Answer questions and list what blocks submission",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.start(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			errs := s.Validate()
			for _, e := range errs {
				fmt.Fprintln(a.out, e.Text)
			}
			if len(errs) > 0 {
				return errors.Errorf("%s %s need attention", humanize.Comma(int64(len(errs))), plural(len(errs), "question", "questions"))
			}
			fmt.Fprintln(a.out, "ready to submit")
			return nil
		},
	}
	a.addAnswerFlags(cmd)
	return cmd
}

func (a *app) submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Answer questions and submit the checklist to the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.Open(a.cfg.Database)
			if err != nil {
				return errors.Wrap(err, "opening database")
			}
			defer store.Close()

			s, err := a.start(cmd.Context(), checklist.WithAutosaver(store), checklist.WithSubmitter(store))
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.Submit(cmd.Context())
			if err != nil {
				return err
			}
			if len(res.Errors) > 0 {
				for _, e := range res.Errors {
					fmt.Fprintln(a.out, e.Text)
				}
				return errors.Errorf("not submitted: %s %s need attention", humanize.Comma(int64(len(res.Errors))), plural(len(res.Errors), "question", "questions"))
			}
			if err := store.DeleteAutosave(cmd.Context(), s.ID()); err != nil {
				a.log.Sugar().Warnw("could not delete autosave", "session", s.ID(), "error", err)
			}

			size := "unknown size"
			if fi, err := os.Stat(store.Path()); err == nil {
				size = humanize.Bytes(uint64(fi.Size()))
			}
			fmt.Fprintf(a.out, "submitted checklist %d with %s answers to %s (%s)\n",
				res.ChecklistID, humanize.Comma(int64(len(s.Answers()))), store.Path(), size)
			return nil
		},
	}
	a.addAnswerFlags(cmd)
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
