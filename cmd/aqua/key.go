package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/keys"
	"xdao.co/aqua/revision"
)

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "show":
		return cmdKeyShow(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "aqua key: local secp256k1 key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  aqua key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  aqua key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  aqua key show --name <name> [--role <role>]")
	fmt.Fprintln(w, "  aqua key list")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "All subcommands accept --key-dir to override ~/.aqua/keys.")
}

func keyStore(fs *pflag.FlagSet) func() (*keys.KeyStore, error) {
	dir := fs.String("key-dir", "", "Key directory (default ~/.aqua/keys)")
	return func() (*keys.KeyStore, error) { return keys.CreateKeyStore(*dir) }
}

func printIdentity(out io.Writer, id keys.Identity, path string) {
	fmt.Fprintf(out, "Public key: %s\n", id.PublicKey)
	fmt.Fprintf(out, "Address: %s\n", id.Address)
	if path != "" {
		fmt.Fprintf(out, "Stored at: %s\n", path)
	}
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("key init", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	name := fs.String("name", "", "Key name (directory under the key directory)")
	seedHex := fs.String("seed-hex", "", "Optional 32-byte seed as 64 hex chars (for reproducible demos)")
	force := fs.Bool("force", false, "Overwrite existing key files")
	openKS := keyStore(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(*name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	var seed []byte
	if *seedHex != "" {
		var err error
		if seed, err = keys.ParseSeedHex(*seedHex); err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	}
	ks, err := openKS()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	id, path, err := ks.InitializeRootKey(*name, seed, *force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	printIdentity(out, id, path)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("key derive", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	from := fs.String("from", "", "Root key name")
	role := fs.String("role", "", "Role identifier (e.g. editor, witness)")
	force := fs.Bool("force", false, "Overwrite existing key files")
	openKS := keyStore(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *from == "" || *role == "" {
		fmt.Fprintln(errOut, "usage: aqua key derive --from <name> --role <role>")
		return 2
	}
	if err := keys.CheckKeyName(*from); err != nil {
		fmt.Fprintf(errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := keys.CheckRole(*role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	ks, err := openKS()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	id, path, err := ks.DeriveKeyFromRole(*from, *role, *force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	printIdentity(out, id, path)
	return 0
}

func cmdKeyShow(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("key show", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	name := fs.String("name", "", "Key name")
	role := fs.String("role", "", "Optional role (shows the derived role key)")
	openKS := keyStore(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	ks, err := openKS()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	id, err := ks.ExportKey(*name, *role)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}
	printIdentity(out, id, "")
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("key list", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	openKS := keyStore(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := openKS()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		if len(e.Roles) == 0 {
			fmt.Fprintln(out, e.Name)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", e.Name, strings.Join(e.Roles, ","))
	}
	return 0
}

// cmdSign prints the signature block a revision carries for the given
// verification hash.
func cmdSign(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("sign", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	name := fs.String("key", "", "Stored key name")
	role := fs.String("role", "", "Optional role of --key")
	seedHex := fs.String("seed-hex", "", "Signing seed as 64 hex chars")
	keyFile := fs.String("key-file", "", "Path to a file holding a hex seed")
	openKS := keyStore(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: aqua sign (--key <name> | --seed-hex <64hex> | --key-file <path>) <hash>")
		return 2
	}
	h, err := ident.ParseHash(fs.Arg(0))
	if err != nil {
		return fail(errOut, err)
	}
	ks, err := openKS()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	priv, err := ks.LoadPrivateKey(*seedHex, *name, *role, *keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "load signer: %v\n", err)
		return 2
	}
	sig, err := revision.NewSignature(h, priv)
	if err != nil {
		return fail(errOut, err)
	}
	if err := writeJSON(out, sig); err != nil {
		fmt.Fprintf(errOut, "write signature: %v\n", err)
		return 1
	}
	return 0
}
