package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flightctl/openapi-parser/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := NewOpenAPIParserCommand()
	if err := command.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func NewOpenAPIParserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "openapi-parser [flags] [options]",
		Short: "openapi-parser reads Swagger 2.0 and OpenAPI 3 documents and writes OpenAPI 3.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdConvert())
	cmd.AddCommand(cli.NewCmdVersion())
	return cmd
}
