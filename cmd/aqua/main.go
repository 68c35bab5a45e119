package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"xdao.co/aqua/cidutil"
	"xdao.co/aqua/ident"
	"xdao.co/aqua/model"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/verify"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "hash":
		return cmdHash(args[1:], out, errOut)
	case "address":
		return cmdAddress(args[1:], out, errOut)
	case "parse":
		return cmdParse(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "verify-branch":
		return cmdVerifyBranch(args[1:], out, errOut)
	case "import":
		return cmdImport(args[1:], out, errOut)
	case "export":
		return cmdExport(args[1:], out, errOut)
	case "list":
		return cmdList(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "sign":
		return cmdSign(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "aqua: revision integrity toolkit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  aqua hash <file>")
	fmt.Fprintln(w, "  aqua address <public-key>")
	fmt.Fprintln(w, "  aqua parse hash|address|pubkey|signature|txhash <value>")
	fmt.Fprintln(w, "  aqua verify <revision.json> [--prev <revision.json>]")
	fmt.Fprintln(w, "  aqua verify-branch --hash <hash> [--backend <name>] [backend flags]")
	fmt.Fprintln(w, "  aqua import <page.json> [--backend <name>] [backend flags]")
	fmt.Fprintln(w, "  aqua export --hash <hash> [--title <t>] [--namespace <n>] [--backend <name>] [backend flags]")
	fmt.Fprintln(w, "  aqua list [--backend <name>] [backend flags]")
	fmt.Fprintln(w, "  aqua bundle export --hash <hash> [--out <file.tar>] [--backend <name>] [backend flags]")
	fmt.Fprintln(w, "  aqua bundle import <file.tar> [--ignore-unknown] [--backend <name>] [backend flags]")
	fmt.Fprintln(w, "  aqua bundle inspect <file.tar> [--ignore-unknown]")
	fmt.Fprintln(w, "  aqua key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  aqua key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  aqua key show --name <name> [--role <role>]")
	fmt.Fprintln(w, "  aqua key list")
	fmt.Fprintln(w, "  aqua sign (--key <name> [--role <role>] | --seed-hex <64hex> | --key-file <path>) <hash>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - keys are stored under ~/.aqua/keys/<name> (0600 seed files)")
	fmt.Fprintln(w, "  - errors are printed as CODE [rule]: message")
	fmt.Fprintln(w, "  - aqua list --backend=x --help shows the flags of every linked backend")
}

// fail prints err with its stable code and returns the exit status.
func fail(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", model.FromError(err))
	return 1
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdHash(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("hash", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: aqua hash <file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read file: %v\n", err)
		return 1
	}
	h := ident.Sum(b)
	_, _ = fmt.Fprintf(out, "%s\t%s\n", h, cidutil.FromHash(h))
	return 0
}

func cmdAddress(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("address", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: aqua address <public-key>")
		return 2
	}
	pub, err := ident.ParsePublicKey(fs.Arg(0))
	if err != nil {
		return fail(errOut, err)
	}
	_, _ = fmt.Fprintln(out, ident.DeriveAddress(pub))
	return 0
}

// cmdParse validates value as the named identifier kind and prints its
// canonical form.
func cmdParse(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("parse", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(errOut, "usage: aqua parse hash|address|pubkey|signature|txhash <value>")
		return 2
	}
	var (
		v   fmt.Stringer
		err error
	)
	switch kind, value := fs.Arg(0), fs.Arg(1); kind {
	case "hash":
		v, err = ident.ParseHash(value)
	case "address":
		v, err = ident.ParseAddress(value)
	case "pubkey":
		v, err = ident.ParsePublicKey(value)
	case "signature":
		v, err = ident.ParseSignature(value)
	case "txhash":
		v, err = ident.ParseTxHash(value)
	default:
		fmt.Fprintf(errOut, "unknown identifier kind: %s\n", kind)
		return 2
	}
	if err != nil {
		return fail(errOut, err)
	}
	_, _ = fmt.Fprintln(out, v)
	return 0
}

func readRevision(path string) (revision.Revision, error) {
	var rev revision.Revision
	b, err := os.ReadFile(path)
	if err != nil {
		return rev, err
	}
	if err := json.Unmarshal(b, &rev); err != nil {
		return rev, fmt.Errorf("%s: %w", path, err)
	}
	return rev, nil
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("verify", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	prevPath := fs.String("prev", "", "Previous revision JSON (required unless the revision is genesis)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: aqua verify <revision.json> [--prev <revision.json>]")
		return 2
	}
	rev, err := readRevision(fs.Arg(0))
	if err != nil {
		return fail(errOut, err)
	}
	var prev *revision.Revision
	if *prevPath != "" {
		p, err := readRevision(*prevPath)
		if err != nil {
			return fail(errOut, err)
		}
		prev = &p
	}
	report := verify.Revision(rev, prev)
	if err := writeJSON(out, report); err != nil {
		fmt.Fprintf(errOut, "write report: %v\n", err)
		return 1
	}
	if !report.OK() {
		return 1
	}
	return 0
}
