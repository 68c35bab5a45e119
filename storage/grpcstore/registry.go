package grpcstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "grpc",
		Description: "gRPC storage client (talks to an aqua-stored daemon)",
		Usage:       registry.UsageCLI,
		Bind: func(fs *pflag.FlagSet) registry.Opener {
			target := fs.String("grpc-target", "", "gRPC target host:port (for --backend=grpc)")
			dialTimeout := fs.Duration("grpc-dial-timeout", 5*time.Second, "Dial timeout (for --backend=grpc)")
			timeout := fs.Duration("grpc-timeout", 0, "Per-RPC timeout (for --backend=grpc)")
			maxMsgBytes := fs.Int("grpc-max-msg-bytes", 0, "Max gRPC message size in bytes (send+recv); 0 uses grpc defaults")
			return func() (storage.Storage[string], func() error, error) {
				t := strings.TrimSpace(*target)
				if t == "" {
					return nil, nil, fmt.Errorf("missing --grpc-target")
				}
				client, err := Dial(t, DialOptions{Timeout: *dialTimeout, MaxMsgBytes: *maxMsgBytes})
				if err != nil {
					return nil, nil, err
				}
				client.Timeout = *timeout
				return client, client.Close, nil
			}
		},
	})
}
