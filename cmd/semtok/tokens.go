package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"semtok/internal/config"
	"semtok/internal/highlight"
	"semtok/internal/legend"
	"semtok/internal/scanner"
	"semtok/internal/server"
	"semtok/internal/token"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

type fileTokens struct {
	Path   string          `json:"path"`
	Data   []uint32        `json:"data"`
	tokens []token.Encoded
}

func newTokensCommand(g *globals) *cobra.Command {
	var language, query string
	var raw bool

	cmd := &cobra.Command{
		Use:   "tokens PATH...",
		Short: "print the semantic tokens of files, directories are walked",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "parse every file as this language")
	cmd.Flags().StringVarP(&query, "query", "q", "", "highlight query file to use instead of the configured one (needs --language)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the LSP encoded integer arrays as JSON")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if query != "" && language == "" {
			return errors.New("--query needs --language")
		}
		cfg, err := g.loadConfig()
		if err != nil {
			return err
		}
		if query != "" {
			i := slices.IndexFunc(cfg.Languages, func(l config.Language) bool { return l.Name == language })
			if i < 0 {
				return errors.Errorf("unknown language %q", language)
			}
			cfg.Languages[i].Query = ""
			cfg.Languages[i].QueryFile = query
		}

		provider, err := server.NewProvider(cfg, g.fs)
		if err != nil {
			return err
		}
		defer provider.Close()

		ctx := cmd.Context()
		if err := provider.Init(ctx); err != nil {
			return err
		}

		results, err := collect(ctx, g, provider, args, language, cfg.Parsers)
		if err != nil {
			return err
		}
		if raw {
			return printRaw(cmd.OutOrStdout(), results)
		}
		printTable(cmd.OutOrStdout(), provider.Legend(), results)
		return nil
	}
	return cmd
}

func collect(ctx context.Context, g *globals, provider *highlight.Provider, paths []string, language string, workers int) ([]fileTokens, error) {
	keep := func(path string) bool {
		if language != "" {
			return true
		}
		_, err := provider.Grammar(ctx, path)
		return err == nil
	}

	var mu sync.Mutex
	var results []fileTokens
	callback := func(ctx context.Context, path string, data []byte) error {
		if language != "" {
			if err := provider.Assign(path, language); err != nil {
				return err
			}
		}
		defer provider.Release(path)

		tokens, err := provider.RequestTokens(ctx, path, data)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		results = append(results, fileTokens{Path: path, Data: token.Relative(tokens), tokens: tokens})
		return nil
	}

	for _, p := range paths {
		if err := scanner.Scan(ctx, g.fs, p, workers, keep, callback); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(results, func(a, b fileTokens) int { return strings.Compare(a.Path, b.Path) })
	return results, nil
}

func printRaw(w io.Writer, results []fileTokens) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return errors.Errorf("failed to encode tokens of %s: %w", r.Path, err)
		}
	}
	return nil
}

func printTable(w io.Writer, l *legend.Legend, results []fileTokens) {
	types, modifiers := l.Types(), l.Modifiers()
	for _, r := range results {
		fmt.Fprintln(w, r.Path)
		for _, t := range r.tokens {
			name := legend.NotInLegend
			if int(t.Type) < len(types) {
				name = types[t.Type]
			}
			line := fmt.Sprintf("  %d:%d\t%d\t%s", t.Line, t.StartChar, t.Length, name)
			var mods []string
			for i, m := range modifiers {
				if t.Modifiers&(1<<i) != 0 {
					mods = append(mods, m)
				}
			}
			if len(mods) > 0 {
				line += "\t" + strings.Join(mods, ",")
			}
			fmt.Fprintln(w, line)
		}
	}
}
