package localfs

import (
	"fmt"

	"github.com/spf13/pflag"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "localfs",
		Description: "Local filesystem revision store (directory)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		Bind: func(fs *pflag.FlagSet) registry.Opener {
			dir := fs.String("localfs-dir", "", "LocalFS store directory (for --backend=localfs)")
			return func() (storage.Storage[string], func() error, error) {
				if *dir == "" {
					return nil, nil, fmt.Errorf("missing --localfs-dir")
				}
				s, err := New(*dir)
				if err != nil {
					return nil, nil, err
				}
				return storage.Encode[ident.Hash](s, storage.HashCodec{}), s.Close, nil
			}
		},
	})
}
