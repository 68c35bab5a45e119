package sqlitestore

import (
	"fmt"

	"github.com/spf13/pflag"

	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "sqlite",
		Description: "SQLite revision store (single database file)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		Bind: func(fs *pflag.FlagSet) registry.Opener {
			path := fs.String("sqlite-path", "", "SQLite database file (for --backend=sqlite; \":memory:\" for a private in-memory store)")
			return func() (storage.Storage[string], func() error, error) {
				if *path == "" {
					return nil, nil, fmt.Errorf("missing --sqlite-path")
				}
				s, err := Open(*path)
				if err != nil {
					return nil, nil, err
				}
				return storage.Encode[int64](s, storage.Int64Codec{}), s.Close, nil
			}
		},
	})
}
