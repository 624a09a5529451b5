// rvgen generates the RISC-V interpreter entry routines described by an
// rvgen.toml manifest, caches them, and writes images or listings.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/codecache"
	"github.com/chazu/rvgen/image"
	"github.com/chazu/rvgen/interp"
	"github.com/chazu/rvgen/manifest"
	"github.com/chazu/rvgen/store"
	"github.com/chazu/rvgen/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("rvgen")

type options struct {
	dir       string
	verbose   bool
	output    string
	list      bool
	entries   bool
	noCache   bool
	host      bool
	allowAll  bool
	signature string
	static    bool
	cacheList bool
	cacheDrop string
}

func main() {
	var opts options
	flag.StringVar(&opts.dir, "C", ".", "Directory to search for rvgen.toml")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose output")
	flag.StringVar(&opts.output, "o", "", "Write the generated image to this file")
	flag.BoolVar(&opts.list, "list", false, "Print a disassembly listing of the interpreter")
	flag.BoolVar(&opts.entries, "entries", false, "Print the entry point table")
	flag.BoolVar(&opts.noCache, "no-cache", false, "Neither read nor write the image cache")
	flag.BoolVar(&opts.host, "host", false, "Target the extensions of this machine instead of the manifest's")
	flag.BoolVar(&opts.allowAll, "all", false, "Allow every known extension")
	flag.StringVar(&opts.signature, "sig", "", "Print the native signature handler for a method descriptor, e.g. '(IJ)I'")
	flag.BoolVar(&opts.static, "static", false, "Treat -sig as a static method")
	flag.BoolVar(&opts.cacheList, "cache-list", false, "List cached images")
	flag.StringVar(&opts.cacheDrop, "cache-delete", "", "Remove the cached image with this fingerprint")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rvgen [options]\n\n")
		fmt.Fprintf(os.Stderr, "Generates the interpreter entry routines configured by rvgen.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rvgen -entries              # Generate (or load from cache), print entries\n")
		fmt.Fprintf(os.Stderr, "  rvgen -list -all            # Listing using every extension\n")
		fmt.Fprintf(os.Stderr, "  rvgen -o interp.img         # Write the image to a file\n")
		fmt.Fprintf(os.Stderr, "  rvgen -sig '(IDLjava/lang/Object;)J' -static\n")
		fmt.Fprintf(os.Stderr, "  rvgen -cache-list           # Show cached images\n")
	}
	flag.Parse()

	if opts.verbose {
		commonlog.Configure(2, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, out io.Writer) error {
	m, err := loadManifest(opts.dir)
	if err != nil {
		return err
	}

	var cache *store.Store
	if path := m.CachePath(); path != "" && !opts.noCache {
		cache, err = store.Open(path)
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	if opts.cacheList || opts.cacheDrop != "" {
		if cache == nil {
			return errors.New("image cache is disabled")
		}
		if opts.cacheDrop != "" {
			if err := cache.Delete(opts.cacheDrop); err != nil {
				return fmt.Errorf("%s: %w", opts.cacheDrop, err)
			}
		}
		if opts.cacheList {
			return listCache(cache, out)
		}
		return nil
	}

	img, err := build(m, opts, cache)
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := image.WriteFile(opts.output, img); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s (%d bytes of code)\n", opts.output, len(img.Code))
	}
	if opts.entries {
		printEntries(img, out)
	}
	if opts.list {
		if err := img.WriteListing(out); err != nil {
			return err
		}
	}
	if opts.signature != "" {
		if err := printSignatureHandler(img, opts, out); err != nil {
			return err
		}
	}
	return nil
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		log.Info("no rvgen.toml found, using defaults")
		m = manifest.Default()
	}
	return m, nil
}

// features returns the extension set generation should use.
func features(m *manifest.Manifest, opts options) (*asm.FeatureContext, error) {
	var detected asm.Features
	if opts.host {
		detected = asm.HostFeatures()
	} else {
		var err error
		if detected, err = m.Features(); err != nil {
			return nil, err
		}
	}
	ctx := asm.NewFeatureContext(detected)
	if opts.allowAll {
		ctx.AllowAll()
	}
	return ctx, nil
}

// build returns the cached image for the manifest's configuration or
// generates a new one. A zero target base installs the code in executable
// memory, which is never cached since its address changes between runs.
func build(m *manifest.Manifest, opts options, cache *store.Store) (*image.Image, error) {
	cfg, err := m.Config()
	if err != nil {
		return nil, err
	}
	ctx, err := features(m, opts)
	if err != nil {
		return nil, err
	}

	base := m.Target.Base
	if base == 0 {
		cache = nil
	}
	fp, err := image.Fingerprint(cfg, ctx.Current(), base)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		img, err := cache.Get(fp)
		if err == nil {
			log.Infof("using cached image %s", img.ID)
			return img, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.Warningf("ignoring image cache: %v", err)
		}
	}

	g, err := interp.NewGenerator(cfg, ctx)
	if err != nil {
		return nil, err
	}

	var sink interp.CodeSink
	if base == 0 {
		exec, err := codecache.NewExecutable(m.Target.Capacity)
		if err != nil {
			return nil, err
		}
		defer exec.Close()
		sink = exec
	} else {
		sink = codecache.NewHeap(base, m.Target.Capacity)
	}

	start := time.Now()
	in, err := g.Generate(sink)
	if err != nil {
		return nil, err
	}
	log.Infof("generated %s interpreter in %v", in.Features, time.Since(start))

	img := image.FromInterpreter(in, fp)
	if cache != nil {
		if err := cache.Put(img); err != nil {
			log.Warningf("caching image: %v", err)
		}
	}
	return img, nil
}

func printEntries(img *image.Image, out io.Writer) {
	fmt.Fprintf(out, "image %s  %s  base %#x\n", img.ID, img.Fingerprint, img.Base)
	for _, name := range img.EntryNames() {
		addr, _ := img.Entry(name)
		fmt.Fprintf(out, "  %#012x  %s\n", addr, name)
	}
}

func printSignatureHandler(img *image.Image, opts options, out io.Writer) error {
	sig, err := vm.ParseSignature(opts.signature)
	if err != nil {
		return err
	}
	off, ok := img.ResultHandlers[sig.Result.String()]
	if !ok {
		return fmt.Errorf("image has no result handler for %s", sig.Result)
	}
	features, err := asm.ParseFeatures(img.Features)
	if err != nil {
		return err
	}
	code, err := interp.GenerateSignatureHandler(sig, opts.static, img.Base+uint64(off), features)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "signature handler %s\n", sig.Key(opts.static))
	return asm.WriteListing(out, 0, asm.Disassemble(code, nil))
}

func listCache(cache *store.Store, out io.Writer) error {
	entries, err := cache.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "no cached images")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %s  %s  %d bytes\n", short(e.Fingerprint), e.ID,
			time.Unix(e.Created, 0).Format(time.RFC3339), e.Size)
	}
	return nil
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
