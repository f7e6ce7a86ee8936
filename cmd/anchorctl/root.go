package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/anchor/internal/client"
)

// Version is overridden at build time.
var Version = "dev"

const (
	defaultURL     = "http://localhost:9080"
	defaultTimeout = 30 * time.Second
)

type globals struct {
	url     string
	timeout time.Duration
	json    bool
}

func (g *globals) client() *client.Client {
	return client.New(g.url, client.WithTimeout(g.timeout))
}

// print writes v as indented JSON when --json is set, otherwise calls text.
func (g *globals) print(w io.Writer, v any, text func(io.Writer)) error {
	if !g.json {
		text(w)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:           "anchorctl",
		Short:         "Anchor - gamified productivity from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&g.url, "url", defaultURL, "Base URL of the anchor server")
	rootCmd.PersistentFlags().DurationVar(&g.timeout, "timeout", defaultTimeout, "HTTP request timeout")
	rootCmd.PersistentFlags().BoolVarP(&g.json, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(
		statusCmd(g),
		taskCmd(g),
		habitCmd(g),
		goalCmd(g),
		focusCmd(g),
		briefCmd(g),
		captureCmd(g),
		shopCmd(g),
		voiceCmd(g),
		seedCmd(g),
	)
	return rootCmd
}

func check(done bool) string {
	if done {
		return "x"
	}
	return " "
}

func fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
