package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/hxglue"
	"github.com/pthm/hxglue/lib/dom"
)

const fetchTimeout = 10 * time.Second

func newMorphCommand(root *rootOptions) *cobra.Command {
	var (
		target string
		split  bool
	)

	cmd := &cobra.Command{
		Use:   "morph <live.html> <markup.html>",
		Short: "Morph a document toward new markup and print the result",
		Long: `Parses <live.html>, reconciles the element selected by --target (the
<body> when empty) against the contents of <markup.html> and prints the
resulting document. With --split the markup is treated as a split payload
and its footer part is appended to the configured footer region.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			doc, err := dom.Parse(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			markup, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			live := dom.FindOne(doc.Root(), "//body")
			if target != "" {
				live = doc.ByID(target)
			}
			if live == nil {
				return fmt.Errorf("%w: %q", hxglue.ErrNoTarget, target)
			}

			rt := hxglue.NewRuntime(doc, root.runtimeOptions()...)
			if split {
				err = rt.PatchFooterSplit(live, string(markup))
			} else {
				err = rt.Patch(live, string(markup))
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), doc.String())
			return err
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "id of the element to morph (default <body>)")
	cmd.Flags().BoolVar(&split, "split", false, "treat the markup as a split payload")
	return cmd
}

func newTokenCommand(root *rootOptions) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:          "token",
		Short:        "Fetch a token from a running server's token endpoint",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if base == "" {
				base = baseURL(root)
			}
			f := &hxglue.HTTPFetcher{
				Client: &http.Client{Timeout: fetchTimeout},
				URL:    strings.TrimRight(base, "/") + root.cfg.Token.Path,
			}
			token, err := f.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "server origin (default server.base_url or http://localhost<addr>)")
	return cmd
}

func newVisitCommand(root *rootOptions) *cobra.Command {
	var (
		base string
		post []string
	)

	cmd := &cobra.Command{
		Use:   "visit [path]",
		Short: "Load a page headlessly, optionally post to it, and print the main region",
		Long: `Loads a page the way a browser would, runs the page-ready handlers
(token refresh included) and then issues each --post path as a partial
request against the main region. Prints the current token and the main
region after every step.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if base == "" {
				base = baseURL(root)
			}
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout*time.Duration(1+len(post)))
			defer cancel()

			opts := append(root.runtimeOptions(), hxglue.WithHTTPClient(&http.Client{Timeout: fetchTimeout}))
			nav, err := hxglue.NewNavigator(base, opts...)
			if err != nil {
				return err
			}
			if err := nav.Load(ctx, path); err != nil {
				return err
			}
			printRegion(cmd, nav, root.cfg.Page.MainID, "GET "+path)

			for _, p := range post {
				err := nav.Do(ctx, hxglue.Request{Verb: http.MethodPost, Path: p})
				if err != nil && !hxglue.IsResponseError(err) {
					return err
				}
				if err != nil {
					root.log.Warn("request failed", zap.String("path", p), zap.Error(err))
				}
				printRegion(cmd, nav, root.cfg.Page.MainID, "POST "+p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "server origin (default server.base_url or http://localhost<addr>)")
	cmd.Flags().StringArrayVar(&post, "post", nil, "path to POST after loading (repeatable)")
	return cmd
}

func printRegion(cmd *cobra.Command, nav *hxglue.Navigator, mainID, step string) {
	rt := nav.Runtime()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "== %s\ntitle: %s\ntoken: %s\n", step, rt.Document().Title(), rt.Store().Value())
	if main := rt.Document().ByID(mainID); main != nil {
		fmt.Fprintln(out, dom.InnerHTML(main))
	}
}

func baseURL(root *rootOptions) string {
	if root.cfg.Server.BaseURL != "" {
		return root.cfg.Server.BaseURL
	}
	addr := root.cfg.Server.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
