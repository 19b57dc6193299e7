package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/literaryfinder/archive"
	"github.com/hupe1980/literaryfinder/config"
)

func newShowCommand(configPath *string) *cobra.Command {
	var (
		format  string
		subject string
	)

	cmd := &cobra.Command{
		Use:   "show [request-id]",
		Short: "Print an archived analysis",
		Long: `Read completed analyses back from the Redis archive.

With a request ID the archived response is printed in the chosen format.
With --subject all archived analyses of that author are listed, oldest first.

Examples:
  literaryfinder show 3f1c2b7e-4f0a-4d8e-9a51-2c5f3e1b9d20
  literaryfinder show --subject "Toni Morrison"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stderr := cmd.ErrOrStderr()
			if len(args) == 0 && subject == "" {
				return printError(stderr, "a request id or --subject is required", "")
			}
			if err := checkFormat(format); err != nil {
				return printError(stderr, err.Error(), "")
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return printError(stderr, err.Error(), "")
			}
			if cfg.Archive.Backend != "redis" {
				return printError(stderr, fmt.Sprintf("archive backend %q keeps nothing between runs", cfg.Archive.Backend),
					"Set archive.backend to redis (or LITERARYFINDER_ARCHIVE_BACKEND=redis).")
			}

			ctx := cmd.Context()
			store, err := openArchive(ctx, cfg)
			if err != nil {
				return printError(stderr, err.Error(), "")
			}
			defer store.Close()

			if subject != "" {
				list, err := store.ListBySubject(ctx, subject)
				if err != nil {
					return printError(stderr, err.Error(), "")
				}
				writeListing(cmd.OutOrStdout(), subject, list)
				return nil
			}

			resp, err := store.Get(ctx, args[0])
			if errors.Is(err, archive.ErrNotFound) {
				return printError(stderr, fmt.Sprintf("no archived analysis %s", args[0]), "It may have expired; see archive.ttl.")
			}
			if err != nil {
				return printError(stderr, err.Error(), "")
			}
			return writeResponse(cmd.OutOrStdout(), resp, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatMarkdown, "Output format: markdown, json or yaml")
	cmd.Flags().StringVar(&subject, "subject", "", "List archived analyses of an author")
	return cmd
}
