package main

import (
	"semtok/internal/server"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

func newServeCommand(g *globals) *cobra.Command {
	var tcp, websocket string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the language server (stdio unless --tcp or --websocket)",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&tcp, "tcp", "", "listen for a client on this TCP address")
	cmd.Flags().StringVar(&websocket, "websocket", "", "listen for a client on this WebSocket address")
	cmd.Flags().BoolVar(&debug, "debug", false, "log every protocol message")
	cmd.MarkFlagsMutuallyExclusive("tcp", "websocket")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := g.loadConfig()
		if err != nil {
			return err
		}

		s := server.New(server.Options{
			Config:  cfg,
			Fs:      g.fs,
			Version: version(),
			Debug:   debug,
		})

		switch {
		case tcp != "":
			err = s.RunTCP(tcp)
		case websocket != "":
			err = s.RunWebSocket(websocket)
		default:
			err = s.RunStdio()
		}
		if err != nil {
			return errors.Errorf("server error: %w", err)
		}
		return nil
	}
	return cmd
}
