// Package main provides the valgraph CLI entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/orneryd/valgraph/pkg/cache"
	"github.com/orneryd/valgraph/pkg/config"
	"github.com/orneryd/valgraph/pkg/graph"
	"github.com/orneryd/valgraph/pkg/loader"
	"github.com/orneryd/valgraph/pkg/pool"
	"github.com/orneryd/valgraph/pkg/snapshot"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "valgraph",
		Short: "valgraph - immutable in-memory graph with attribute queries",
		Long: `valgraph builds an immutable, attribute-indexed directed graph from a
YAML seed and answers node and edge queries against it.

Queries are conjunctions of clauses; each clause lists accepted values:
  kind=person,age=70|45     nodes with kind person and age 70 or 45
  child=0                   nodes whose parent is node 0`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().String("seed", "", "Seed file, overrides the config")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log snapshot commits")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "valgraph v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "load",
		Short: "Load the seed, verify constraints and print counts",
		RunE:  runLoad,
	})

	queryCmd := &cobra.Command{
		Use:   "query [query...]",
		Short: "Run node (or edge) queries in parallel against one snapshot",
		RunE:  runQuery,
	}
	queryCmd.Flags().StringArray("where", nil, "Clause key=v1|v2 (repeatable, forms one query)")
	queryCmd.Flags().Bool("edges", false, "Query edges instead of nodes")
	rootCmd.AddCommand(queryCmd)

	expandCmd := &cobra.Command{
		Use:   "expand [query]",
		Short: "Print every attribute bag a multi-valued query describes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExpand,
	}
	expandCmd.Flags().StringArray("where", nil, "Clause key=v1|v2 (repeatable)")
	rootCmd.AddCommand(expandCmd)

	return rootCmd
}

// loadConfig resolves the config file, environment and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if seed, _ := cmd.Flags().GetString("seed"); seed != "" {
		cfg.Seed = seed
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// openStore builds the initial graph from cfg and wraps it in a store.
func openStore(cfg *config.Config) (*snapshot.Store, error) {
	pool.Configure(pool.Config{Enabled: cfg.Pool.Enabled, MaxCap: cfg.Pool.MaxCap})
	if cfg.Log.Verbose {
		log.Printf("[valgraph] starting with %s", cfg)
		if !pool.IsEnabled() {
			log.Printf("[valgraph] buffer pooling disabled")
		}
	}

	g, err := graph.New(graph.WithRelations(cfg.RelationPairs()...))
	if err != nil {
		return nil, err
	}
	if cfg.Seed != "" {
		res, err := loader.LoadFile(g, cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", cfg.Seed, err)
		}
		g = res.Graph
	}

	rc := cache.NewResultCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
	rc.SetEnabled(cfg.Cache.Enabled)
	return snapshot.New(g, snapshot.WithVerbose(cfg.Log.Verbose), snapshot.WithCache(rc)), nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}

	if _, err := s.Update(cmd.Context(), func(g *graph.Graph) (*graph.Graph, error) {
		return g.VerifyConstraints()
	}); err != nil {
		return fmt.Errorf("verifying constraints: %w", err)
	}

	st := s.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rev:       %d\n", st.Rev)
	fmt.Fprintf(out, "nodes:     %d\n", st.Nodes)
	fmt.Fprintf(out, "edges:     %d\n", st.Edges)
	fmt.Fprintf(out, "relations: %s\n", formatPairs(s.Current()))
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	queries, err := collectQueries(cmd, args)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		queries = []graph.Query{{}}
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	edges, _ := cmd.Flags().GetBool("edges")

	results, err := runParallel(cmd.Context(), s, queries, edges, cfg.Query.Parallelism)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, lines := range results {
		fmt.Fprintf(out, "# %s (%d)\n", snapshot.Canonical(queries[i]), len(lines))
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
	}
	return nil
}

// runParallel answers every query against the same snapshot, at most limit
// at a time, and returns their rendered rows in query order.
func runParallel(ctx context.Context, s *snapshot.Store, queries []graph.Query, edges bool, limit int) ([][]string, error) {
	g := s.Current()

	results := make([][]string, len(queries))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, q := range queries {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if edges {
				for _, id := range s.QueryEdgesAt(g, q) {
					e, _ := g.GetEdge(id)
					results[i] = append(results[i], formatEdge(e))
				}
				return nil
			}
			for _, n := range s.QueryNodesAt(g, q) {
				results[i] = append(results[i], formatNode(n))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runExpand(cmd *cobra.Command, args []string) error {
	queries, err := collectQueries(cmd, args)
	if err != nil {
		return err
	}
	q := graph.Query{}
	for _, part := range queries {
		for k, v := range part {
			q[k] = append(q[k], v...)
		}
	}
	out := cmd.OutOrStdout()
	for _, bag := range graph.Expand(q) {
		fmt.Fprintln(out, formatAttrs(bag))
	}
	return nil
}

// collectQueries builds one query from the --where flags plus one per
// positional argument.
func collectQueries(cmd *cobra.Command, args []string) ([]graph.Query, error) {
	var queries []graph.Query
	where, _ := cmd.Flags().GetStringArray("where")
	if len(where) > 0 {
		q, err := parseQuery(strings.Join(where, ","))
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	for _, arg := range args {
		q, err := parseQuery(arg)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, nil
}
