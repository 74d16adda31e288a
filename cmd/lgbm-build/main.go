// Command lgbm-build builds the vendored LightGBM library and generates the
// cgo bindings and link file for it.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lgbmsys "github.com/contriboss/lightgbm-sys-go"
	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:], os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run builds the command tree and executes it against args.
func run(ctx context.Context, stdout, stderr io.Writer, args []string, lookup lgbmsys.LookupFunc) error {
	root := newRootCmd(stdout, stderr, lookup)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

type options struct {
	config   string
	verbose  bool
	settings lgbmsys.Settings
}

func newRootCmd(stdout, stderr io.Writer, lookup lgbmsys.LookupFunc) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "lgbm-build",
		Short:         "Build LightGBM and generate its cgo bindings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.config, "config", "c", "", "config file (.hcl, .yaml or .json); defaults to $"+lgbmsys.EnvConfig)
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	s := &opts.settings
	pf.StringVar(&s.Target, "target", "", "target triple (default: $TARGET or the host)")
	pf.StringVar(&s.OutDir, "out-dir", "", "output directory (default: $OUT_DIR)")
	pf.StringVar(&s.BuildDir, "build-dir", "", "CMake build and install root (default: the output directory)")
	pf.StringVar(&s.StagingDir, "staging-dir", "", "parent directory of the staged source tree")
	pf.StringVar(&s.VendorDir, "vendor-dir", "", "vendored LightGBM checkout")
	pf.StringVar(&s.RepoRoot, "repo-root", "", "repository declaring the LightGBM submodule")
	pf.StringVar(&s.Features, "features", "", "comma separated features: openmp, gpu, cuda")
	pf.StringVar(&s.HeaderSource, "header-source", "", "header to bind: installed or vendored")
	pf.StringVar(&s.SubmoduleBackend, "submodules", "", "submodule backend: git, go-git or off")
	pf.StringVar(&s.Generator, "generator", "", "CMake generator")
	pf.StringVar(&s.Package, "package", "", "Go package of the generated files")
	pf.StringVar(&s.BindingsFile, "bindings-file", "", "file name of the generated bindings")
	pf.StringVarP(&s.Parallel, "jobs", "j", "", "parallel build jobs")

	root.AddCommand(
		newBuildCmd(opts, lookup),
		newPlanCmd(opts, lookup),
		newDefinesCmd(opts, lookup),
		newHeaderCmd(opts, lookup),
	)
	return root
}

func newBuildCmd(opts *options, lookup lgbmsys.LookupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Stage, configure and build LightGBM, then emit bindings and link directives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bctx, err := resolveContext(cmd.Context(), opts, lookup)
			if err != nil {
				return err
			}

			state, err := lgbmsys.NewPipeline(cmd.OutOrStdout()).Run(cmd.Context(), bctx)
			if err != nil {
				return err
			}
			ctxlog.FromContext(cmd.Context()).Info("Build finished.", "emitted", len(state.Emitted))
			return nil
		},
	}
}

func newPlanCmd(opts *options, lookup lgbmsys.LookupFunc) *cobra.Command {
	var ldflags bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the link directives for the target without building",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bctx, err := resolveContext(cmd.Context(), opts, lookup)
			if err != nil {
				return err
			}

			plan := lgbmsys.NewLinkPlanner().Plan(bctx, lgbmsys.ArtifactLayout(bctx))
			if ldflags {
				for _, f := range plan.LDFlags() {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			}

			var data [][]string
			for i, d := range plan.Directives {
				data = append(data, []string{strconv.Itoa(i + 1), d.String(), d.LDFlag()})
			}
			renderTable(cmd.OutOrStdout(), []string{"#", "DIRECTIVE", "LDFLAG"}, data)
			return nil
		},
	}
	cmd.Flags().BoolVar(&ldflags, "ldflags", false, "print grouped linker flags instead of the directive table")
	return cmd
}

func newDefinesCmd(opts *options, lookup lgbmsys.LookupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "defines",
		Short: "Show the CMake definitions for the target and features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bctx, err := resolveContext(cmd.Context(), opts, lookup)
			if err != nil {
				return err
			}

			var data [][]string
			for _, d := range lgbmsys.ConfigureDefines(bctx) {
				data = append(data, []string{d.Name, d.Value})
			}
			renderTable(cmd.OutOrStdout(), []string{"NAME", "VALUE"}, data)
			return nil
		},
	}
}

func newHeaderCmd(opts *options, lookup lgbmsys.LookupFunc) *cobra.Command {
	var includeDirs []string

	cmd := &cobra.Command{
		Use:   "header [path]",
		Short: "List the declarations the binding generator reads from a header",
		Long: "List the constants, typedefs and exported functions of a header. The\n" +
			"default is the vendored " + lgbmsys.APIHeader + ".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bctx, err := resolveContext(cmd.Context(), opts, lookup)
			if err != nil {
				return err
			}

			include := filepath.Join(bctx.VendorDir, "include")
			path := filepath.Join(include, lgbmsys.APIHeader)
			if len(args) == 1 {
				path = args[0]
			}
			dirs := includeDirs
			if len(dirs) == 0 {
				dirs = []string{include}
			}

			parseOpts := lgbmsys.DefaultParseOptions(dirs...)
			header, err := lgbmsys.CHeaderParser{}.Parse(cmd.Context(), path, parseOpts)
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# %s %s\n", path, strings.Join(parseOpts.Args(), " "))
			var data [][]string
			for _, c := range header.Constants {
				data = append(data, []string{"const", c.Name, c.Value, summary(c.Doc)})
			}
			for _, td := range header.Typedefs {
				data = append(data, []string{"type", td.Name, td.Type.String(), summary(td.Doc)})
			}
			for _, fn := range header.Functions {
				data = append(data, []string{"func", fn.Name, fn.Signature(), summary(fn.Doc)})
			}
			renderTable(w, []string{"KIND", "NAME", "DECLARATION", "DOC"}, data)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&includeDirs, "include", "I", nil, "include directory (default: the vendored include directory)")
	return cmd
}

// summary returns the first line of a doc comment.
func summary(doc string) string {
	first, _, _ := strings.Cut(lgbmsys.PlainDoc(doc), "\n")
	return first
}

// resolveContext layers the environment, the config file and the flags,
// in that order, into a BuildContext.
func resolveContext(ctx context.Context, opts *options, lookup lgbmsys.LookupFunc) (*lgbmsys.BuildContext, error) {
	settings := lgbmsys.SettingsFromEnv(lookup)

	path := opts.config
	if path == "" {
		path, _ = lookup(lgbmsys.EnvConfig)
	}
	if path != "" {
		cfg, err := lgbmsys.LoadFileConfig(ctx, path, lookup)
		if err != nil {
			return nil, err
		}
		settings = settings.Merge(cfg.Settings())
	}

	return lgbmsys.NewBuildContext(settings.Merge(opts.settings))
}

func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
