package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"beanexport/internal/logging"
	"beanexport/internal/plugin"
	"beanexport/internal/transport"
)

func newServeCmd() *cobra.Command {
	var listen string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the built-in handlers to other beanexport runs",
		Long: `Serve exposes the built-in delegated handlers over gRPC. Export
definitions elsewhere can then reference them as

  module_name: grpc://HOST:PORT/beancount_toolbox.plugins.filter_tags

Example:
  beanexport serve --listen :50051`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := plugin.Builtin()
			srv, err := transport.StartServer(listen, reg)
			if err != nil {
				return err
			}
			go func() {
				<-cmd.Context().Done()
				srv.Stop()
			}()
			logging.L().Info("beanexport: serving handlers",
				zap.String("addr", srv.Addr().String()), zap.Strings("handlers", reg.Names()))
			return srv.Serve()
		},
	}
	serve.Flags().StringVar(&listen, "listen", ":50051", "address to listen on")
	return serve
}
