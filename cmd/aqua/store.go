package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/model"
	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/bundle"
	"xdao.co/aqua/storage/registry"
	"xdao.co/aqua/verify"

	_ "xdao.co/aqua/storage/grpcstore"
	_ "xdao.co/aqua/storage/localfs"
	_ "xdao.co/aqua/storage/memstore"
	_ "xdao.co/aqua/storage/sqlitestore"
)

const defaultBackend = "localfs"

// storeFlags adds --backend and every CLI backend's flags to fs.
type storeFlags struct {
	backend *string
	binding *registry.Binding
}

func addStoreFlags(fs *pflag.FlagSet) storeFlags {
	return storeFlags{
		backend: fs.String("backend", defaultBackend, "storage backend name"),
		binding: registry.RegisterFlags(fs, registry.UsageCLI),
	}
}

func (f storeFlags) open() (storage.Storage[string], func() error, error) {
	return f.binding.Open(*f.backend)
}

func closeStore(closeFn func() error, errOut io.Writer) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		fmt.Fprintf(errOut, "close backend: %v\n", err)
	}
}

func cmdVerifyBranch(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("verify-branch", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	hashStr := fs.String("hash", "", "Any revision hash of the branch")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *hashStr == "" {
		fmt.Fprintln(errOut, "missing --hash")
		return 2
	}
	h, err := ident.ParseHash(*hashStr)
	if err != nil {
		return fail(errOut, err)
	}
	s, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "open backend: %v\n", err)
		return 2
	}
	defer closeStore(closeFn, errOut)

	report, err := verify.Branch(context.Background(), s, h)
	if err != nil {
		return fail(errOut, err)
	}
	if err := writeJSON(out, report); err != nil {
		fmt.Fprintf(errOut, "write report: %v\n", err)
		return 1
	}
	if !report.OK() {
		return 1
	}
	return 0
}

func cmdImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("import", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: aqua import <page.json> [--backend <name>]")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read page data: %v\n", err)
		return 1
	}
	var pd model.PageData
	if err := json.Unmarshal(b, &pd); err != nil {
		return fail(errOut, model.NewError(model.ErrInvalidRequest, err.Error()))
	}

	s, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "open backend: %v\n", err)
		return 2
	}
	defer closeStore(closeFn, errOut)

	ctx := context.Background()
	for _, page := range pd.Pages {
		if err := model.Import(ctx, s, page); err != nil {
			return fail(errOut, err)
		}
		_, _ = fmt.Fprintf(out, "%s\t%d\t%s\n", page.GenesisHash, page.ChainHeight, page.Title)
	}
	return 0
}

func cmdExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var hashes []string
	fs.StringArrayVar(&hashes, "hash", nil, "Revision hash of a branch to export (repeatable)")
	title := fs.String("title", "", "Page title")
	namespace := fs.Uint64("namespace", 0, "Page namespace")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(hashes) == 0 {
		fmt.Fprintln(errOut, "missing --hash")
		return 2
	}
	s, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "open backend: %v\n", err)
		return 2
	}
	defer closeStore(closeFn, errOut)

	ctx := context.Background()
	pd := model.PageData{Pages: make([]model.HashChain, 0, len(hashes))}
	for _, hs := range hashes {
		h, err := ident.ParseHash(hs)
		if err != nil {
			return fail(errOut, err)
		}
		page, err := model.Export(ctx, s, h, *title, *namespace)
		if err != nil {
			return fail(errOut, err)
		}
		pd.Pages = append(pd.Pages, page)
	}
	if err := writeJSON(out, pd); err != nil {
		fmt.Fprintf(errOut, "write page data: %v\n", err)
		return 1
	}
	return 0
}

func cmdList(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	s, closeFn, err := sf.open()
	if err != nil {
		fmt.Fprintf(errOut, "open backend: %v\n", err)
		return 2
	}
	defer closeStore(closeFn, errOut)

	hashes, err := s.List(context.Background())
	if err != nil {
		return fail(errOut, err)
	}
	for _, h := range hashes {
		_, _ = fmt.Fprintln(out, h)
	}
	return 0
}

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: aqua bundle <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: export, import, inspect")
		return 2
	}
	switch args[0] {
	case "export":
		fs := pflag.NewFlagSet("bundle export", pflag.ContinueOnError)
		fs.SetOutput(errOut)
		hashStr := fs.String("hash", "", "Any revision hash of the branch")
		outPath := fs.String("out", "", "Output file (default stdout)")
		sf := addStoreFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *hashStr == "" {
			fmt.Fprintln(errOut, "missing --hash")
			return 2
		}
		h, err := ident.ParseHash(*hashStr)
		if err != nil {
			return fail(errOut, err)
		}
		s, closeFn, err := sf.open()
		if err != nil {
			fmt.Fprintf(errOut, "open backend: %v\n", err)
			return 2
		}
		defer closeStore(closeFn, errOut)

		w := out
		if *outPath != "" {
			f, err := os.Create(*outPath)
			if err != nil {
				fmt.Fprintf(errOut, "create --out: %v\n", err)
				return 1
			}
			defer f.Close()
			w = f
		}
		if err := bundle.Export(context.Background(), w, s, h); err != nil {
			return fail(errOut, err)
		}
		return 0
	case "import":
		fs := pflag.NewFlagSet("bundle import", pflag.ContinueOnError)
		fs.SetOutput(errOut)
		ignoreUnknown := fs.Bool("ignore-unknown", false, "Skip unknown archive entries")
		sf := addStoreFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: aqua bundle import <file.tar> [--backend <name>]")
			return 2
		}
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "open bundle: %v\n", err)
			return 1
		}
		defer f.Close()
		s, closeFn, err := sf.open()
		if err != nil {
			fmt.Fprintf(errOut, "open backend: %v\n", err)
			return 2
		}
		defer closeStore(closeFn, errOut)

		genesis, err := bundle.ImportWithOptions(context.Background(), f, s, bundle.ImportOptions{IgnoreUnknown: *ignoreUnknown})
		if err != nil {
			return fail(errOut, err)
		}
		_, _ = fmt.Fprintln(out, genesis)
		return 0
	case "inspect":
		fs := pflag.NewFlagSet("bundle inspect", pflag.ContinueOnError)
		fs.SetOutput(errOut)
		ignoreUnknown := fs.Bool("ignore-unknown", false, "Skip unknown archive entries")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: aqua bundle inspect <file.tar>")
			return 2
		}
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "open bundle: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := bundle.Inspect(f, out, bundle.ImportOptions{IgnoreUnknown: *ignoreUnknown}); err != nil {
			return fail(errOut, err)
		}
		return 0
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n", args[0])
		return 2
	}
}
