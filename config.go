package lgbmsys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/contriboss/lightgbm-sys-go/internal/ctxlog"
	"github.com/ghodss/yaml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/mitchellh/go-homedir"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// FileConfig is the optional build configuration file.
//
// HCL files may call env("NAME") and reference host_target:
//
//	target        = host_target
//	out_dir       = env("OUT_DIR")
//	features      = ["openmp"]
//	header_source = "vendored"
//
// YAML and JSON files use the same keys. Relative directories resolve
// against the directory holding the file; a leading ~ expands to the home
// directory.
type FileConfig struct {
	Target           string   `hcl:"target,optional" json:"target,omitempty"`
	OutDir           string   `hcl:"out_dir,optional" json:"out_dir,omitempty"`
	BuildDir         string   `hcl:"build_dir,optional" json:"build_dir,omitempty"`
	StagingDir       string   `hcl:"staging_dir,optional" json:"staging_dir,omitempty"`
	VendorDir        string   `hcl:"vendor_dir,optional" json:"vendor_dir,omitempty"`
	RepoRoot         string   `hcl:"repo_root,optional" json:"repo_root,omitempty"`
	Features         []string `hcl:"features,optional" json:"features,omitempty"`
	CXXCompiler      string   `hcl:"cxx,optional" json:"cxx,omitempty"`
	CCompiler        string   `hcl:"cc,optional" json:"cc,omitempty"`
	Generator        string   `hcl:"generator,optional" json:"generator,omitempty"`
	HeaderSource     string   `hcl:"header_source,optional" json:"header_source,omitempty"`
	SubmoduleBackend string   `hcl:"submodules,optional" json:"submodules,omitempty"`
	Package          string   `hcl:"package,optional" json:"package,omitempty"`
	BindingsFile     string   `hcl:"bindings_file,optional" json:"bindings_file,omitempty"`
	Parallel         int      `hcl:"parallel,optional" json:"parallel,omitempty"`
}

// LoadFileConfig reads a config file, choosing the format by extension:
// .hcl, or .yaml/.yml/.json. lookup backs the HCL env() function.
func LoadFileConfig(ctx context.Context, path string, lookup LookupFunc) (*FileConfig, error) {
	const step = "config"
	logger := ctxlog.FromContext(ctx)

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, envError(step, err)
	}
	logger.Debug("Loading config file.", "path", expanded)

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, envError(step, fmt.Errorf("failed to read config file: %w", err))
	}

	var cfg FileConfig
	switch ext := strings.ToLower(filepath.Ext(expanded)); ext {
	case ".hcl":
		if err := decodeHCLConfig(data, expanded, lookup, &cfg); err != nil {
			return nil, envError(step, err)
		}
	case ".yaml", ".yml", ".json":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, envError(step, fmt.Errorf("failed to decode config file %s: %w", expanded, err))
		}
	default:
		return nil, envError(step, fmt.Errorf("unsupported config file type %q (want .hcl, .yaml, .yml or .json)", ext))
	}

	if err := cfg.resolvePaths(filepath.Dir(expanded)); err != nil {
		return nil, envError(step, err)
	}

	logger.Debug("Loaded config file.", "path", expanded, "target", cfg.Target, "features", strings.Join(cfg.Features, ","))
	return &cfg, nil
}

func decodeHCLConfig(data []byte, filename string, lookup LookupFunc, cfg *FileConfig) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	diags = gohcl.DecodeBody(file.Body, configEvalContext(lookup), cfg)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}
	return nil
}

func configEvalContext(lookup LookupFunc) *hcl.EvalContext {
	env := function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			v, _ := lookup(args[0].AsString())
			return cty.StringVal(v), nil
		},
	})

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"host_target": cty.StringVal(HostTriple()),
		},
		Functions: map[string]function.Function{
			"env": env,
		},
	}
}

func (c *FileConfig) resolvePaths(base string) error {
	for _, p := range []*string{&c.OutDir, &c.BuildDir, &c.StagingDir, &c.VendorDir, &c.RepoRoot} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(base, expanded)
		}
		*p = expanded
	}
	return nil
}

// Settings converts the file into a settings layer for Merge.
func (c *FileConfig) Settings() Settings {
	s := Settings{
		Target:           c.Target,
		OutDir:           c.OutDir,
		BuildDir:         c.BuildDir,
		StagingDir:       c.StagingDir,
		VendorDir:        c.VendorDir,
		RepoRoot:         c.RepoRoot,
		Features:         strings.Join(c.Features, ","),
		CXXCompiler:      c.CXXCompiler,
		CCompiler:        c.CCompiler,
		Generator:        c.Generator,
		HeaderSource:     c.HeaderSource,
		SubmoduleBackend: c.SubmoduleBackend,
		Package:          c.Package,
		BindingsFile:     c.BindingsFile,
	}
	if c.Parallel > 0 {
		s.Parallel = strconv.Itoa(c.Parallel)
	}
	return s
}
