// Hoist CLI - lifts nested function literals out of C-like sources.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/hoist/artifact"
	"github.com/chazu/hoist/gogen"
	"github.com/chazu/hoist/lift"
	"github.com/chazu/hoist/manifest"
	"github.com/chazu/hoist/registry"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("hoist")

func main() {
	projectDir := flag.String("C", ".", "Project directory (where hoist.toml lives, searched upward)")
	verbose := flag.Bool("v", false, "Verbose output")
	registryPath := flag.String("registry", "", "Registry database path (default <project>/.hoist/registry.db)")
	noRegistry := flag.Bool("no-registry", false, "Skip the registry; root uniqueness is only enforced within this run")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hoist [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Transforms the project's sources, lifting every nested function literal\n")
		fmt.Fprintf(os.Stderr, "into a flat top-level definition. Without file arguments, all sources\n")
		fmt.Fprintf(os.Stderr, "under the manifest's source dirs are transformed.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hoist                  # Transform the whole project\n")
		fmt.Fprintf(os.Stderr, "  hoist src/events.hc    # Transform one file\n")
		fmt.Fprintf(os.Stderr, "  hoist -C ./app -v      # Another project dir, verbose\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	m, err := manifest.FindAndLoad(*projectDir)
	if err != nil {
		fail(err)
	}
	if m == nil {
		fail(fmt.Errorf("no hoist.toml found in %s or any parent", *projectDir))
	}
	log.Infof("project %s (namespace %s)", m.Project.Name, m.Project.Namespace)

	files := flag.Args()
	if len(files) == 0 {
		files, err = collectSources(m)
		if err != nil {
			fail(err)
		}
	}
	if len(files) == 0 {
		fail(fmt.Errorf("no %s sources under %s", m.Source.Extension, strings.Join(m.SourceDirPaths(), ", ")))
	}

	var reg *registry.Registry
	if !*noRegistry {
		path := *registryPath
		if path == "" {
			path = filepath.Join(m.Dir, ".hoist", "registry.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			fail(err)
		}
		reg, err = registry.Open(path)
		if err != nil {
			fail(err)
		}
		defer reg.Close()
		log.Infof("registry %s (run %s)", path, reg.RunID())
	}

	if err := os.MkdirAll(m.OutputDirPath(), 0755); err != nil {
		fail(err)
	}

	alloc := lift.NewAllocator()
	target := m.LiftTarget()
	for _, file := range files {
		if err := transformFile(m, reg, alloc, target, file); err != nil {
			fail(fmt.Errorf("%s: %w", file, err))
		}
	}
	log.Infof("transformed %d files", len(files))
}

// transformFile runs one source file through the engine and writes the
// C output plus, per the manifest, the artifact and Go metadata.
func transformFile(m *manifest.Manifest, reg *registry.Registry, alloc *lift.Allocator, target lift.Target, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	root := scopeRoot(m, file)
	if manifest.IsReservedRoot(root) {
		return fmt.Errorf("scope root %q is reserved", root)
	}
	if reg != nil {
		if err := reg.ClaimRoot(root); err != nil {
			return err
		}
	}

	res, err := lift.Transform(lift.Scope{Root: root, Body: string(src)}, lift.Options{
		Target:   target,
		MaxSteps: m.MaxSteps(),
		Alloc:    alloc,
	})
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(file), m.Source.Extension)
	outPath := filepath.Join(m.OutputDirPath(), base+".c")
	if err := os.WriteFile(outPath, []byte(lift.RenderC(res)), 0644); err != nil {
		return err
	}

	a := artifact.FromResult(res)
	log.Infof("%s: %d definitions, %d steps, hash %x", root, len(a.Definitions), res.Steps, a.Hash[:8])

	if m.Output.Artifacts {
		data, err := artifact.Marshal(a)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(m.OutputDirPath(), base+".cbor"), data, 0644); err != nil {
			return err
		}
	}
	if reg != nil {
		if err := reg.RecordArtifact(a); err != nil {
			return err
		}
	}

	if m.Output.GoPackage != "" {
		meta, err := gogen.Generate(m.Output.GoPackage, res, gogen.GenerateOptions{})
		if err != nil {
			return err
		}
		pkgDir := filepath.Join(m.OutputDirPath(), gogen.PackageName(m.Output.GoPackage))
		if err := os.MkdirAll(pkgDir, 0755); err != nil {
			return err
		}
		metaPath := filepath.Join(pkgDir, strings.ToLower(base)+"_meta.go")
		if err := os.WriteFile(metaPath, []byte(meta), 0644); err != nil {
			return err
		}
	}

	return nil
}

// scopeRoot derives the namespace root for a source file: the project
// namespace plus the PascalCase file base. A file named the same as
// the project (e.g. src/events.hc in project "events") is the root
// scope and uses the bare namespace.
func scopeRoot(m *manifest.Manifest, file string) string {
	base := strings.TrimSuffix(filepath.Base(file), m.Source.Extension)
	part := manifest.ToPascalCase(base)
	if part == m.Project.Namespace {
		return m.Project.Namespace
	}
	return m.Project.Namespace + part
}

// collectSources gathers source files under the manifest's source dirs.
func collectSources(m *manifest.Manifest) ([]string, error) {
	var files []string
	for _, dir := range m.SourceDirPaths() {
		err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(p, m.Source.Extension) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("walking %q: %w", dir, err)
		}
	}
	return files, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
