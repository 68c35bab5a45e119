package memstore

import (
	"github.com/spf13/pflag"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "memory",
		Description: "In-memory revision store (contents are lost on exit)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		Bind: func(*pflag.FlagSet) registry.Opener {
			return func() (storage.Storage[string], func() error, error) {
				s := New()
				return storage.Encode[ident.Hash](s, storage.HashCodec{}), s.Close, nil
			}
		},
	})
}
