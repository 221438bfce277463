// Command lcfrsparse is a demo driver for the lcfrs/cfg parsing engine: it
// compiles a grammar file, parses a sentence against it and prints the
// k-best derivations.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talent-works/disco-dop/cfg"
	"github.com/talent-works/disco-dop/deriv"
	"github.com/talent-works/disco-dop/grammar"
	"github.com/talent-works/disco-dop/internal/chart"
	"github.com/talent-works/disco-dop/kbest"
	"github.com/talent-works/disco-dop/lcfrs"
	"github.com/talent-works/disco-dop/tagstring"
)

const debinMarker = "__"

func main() {
	rootCmd := &cobra.Command{
		Use:   "lcfrsparse",
		Short: "Parse a sentence against a PCFG/LCFRS grammar and print the k-best derivations",
	}

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newCFGParseCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type parseFlags struct {
	grammarPath string
	start       string
	tagged      bool
	k           int
	exhaustive  bool
}

func addCommonFlags(cmd *cobra.Command, f *parseFlags) {
	cmd.Flags().StringVarP(&f.grammarPath, "grammar", "g", "", "path to the grammar text file (required)")
	cmd.Flags().StringVarP(&f.start, "start", "s", "<root>", "start (goal) nonterminal")
	cmd.Flags().BoolVarP(&f.tagged, "tagged", "t", false, "sentence is a word/TAG token stream")
	cmd.Flags().IntVarP(&f.k, "k", "k", 1, "number of derivations to print")
	cmd.MarkFlagRequired("grammar")
}

func newParseCmd() *cobra.Command {
	f := &parseFlags{}
	cmd := &cobra.Command{
		Use:   "parse <sentence>",
		Short: "Parse with the agenda-driven LCFRS CKY parser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, sentence, tags, start, err := loadGrammarAndSentence(f, args[0])
			if err != nil {
				return err
			}

			c, goal, msg := lcfrs.Parse(sentence, g, lcfrs.Options{
				Tags:       tags,
				Start:      start,
				Exhaustive: f.exhaustive,
			})
			fmt.Fprintln(os.Stderr, msg)
			if goal.IsNone() {
				fmt.Println("no parse")
				return nil
			}

			src := lcfrs.Source{Chart: c, Grammar: g}
			enum := kbest.New[chart.ChartItem](src, f.k)
			return printDerivations(enum.Best(goal, f.k, debinMarker), sentence)
		},
	}
	addCommonFlags(cmd, f)
	cmd.Flags().BoolVar(&f.exhaustive, "exhaustive", false, "run the agenda to completion instead of stopping at the first goal derivation")
	return cmd
}

func newCFGParseCmd() *cobra.Command {
	f := &parseFlags{}
	cmd := &cobra.Command{
		Use:   "cfgparse <sentence>",
		Short: "Parse with the dense-chart CFG CKY parser (no discontinuous rules)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, sentence, tags, start, err := loadGrammarAndSentence(f, args[0])
			if err != nil {
				return err
			}

			c, goal := cfg.Parse(sentence, g, cfg.Options{Tags: tags, Start: start})
			if goal.IsNone() {
				fmt.Println("no parse")
				return nil
			}

			src := cfg.Source{Chart: c, Grammar: g}
			enum := kbest.New[cfg.Cell](src, f.k)
			return printDerivations(enum.Best(goal, f.k, debinMarker), sentence)
		},
	}
	addCommonFlags(cmd, f)
	return cmd
}

func loadGrammarAndSentence(f *parseFlags, text string) (*grammar.CompiledGrammar, []string, []string, chart.Label, error) {
	grammarText, err := os.ReadFile(f.grammarPath)
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("read grammar: %w", err)
	}
	g, err := grammar.Compile(string(grammarText), grammar.DefaultCompileOptions())
	if err != nil {
		return nil, nil, nil, 0, fmt.Errorf("compile grammar: %w", err)
	}

	var sentence, tags []string
	if f.tagged {
		if sentence, tags, err = tagstring.Split(text); err != nil {
			return nil, nil, nil, 0, err
		}
	} else {
		sentence = strings.Fields(text)
	}

	start, ok := g.ToID(f.start)
	if !ok {
		return nil, nil, nil, 0, fmt.Errorf("unknown start symbol %q", f.start)
	}
	return g, sentence, tags, start, nil
}

func printDerivations(derivs []string, sentence []string) error {
	if len(derivs) == 0 {
		fmt.Println("no derivations")
		return nil
	}
	for i, d := range derivs {
		tree, err := deriv.Parse(d, sentence)
		if err != nil {
			return fmt.Errorf("render derivation %d: %w", i, err)
		}
		fmt.Printf("--- #%d ---\n%s\n", i+1, tree)
	}
	return nil
}
