package main

import (
	"errors"
	"fmt"

	"github.com/loykin/apicall"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPromptCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt <endpoint> <prompt>",
		Short: "Send a text prompt and print the generated answer",
		Long: `Send a one-shot text prompt to a generative-language endpoint.
The API key is read from an environment variable (GEMINI_API_KEY by default)
and passed as a query parameter; the credential file is not consulted.`,
		Args: rangeArgs(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, logger, err := setup(cmd, v)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			o, cleanup, err := buildOrchestrator(ctx, doc, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			text, err := o.Prompt(ctx, apicall.PromptCall{
				Endpoint:      args[0],
				Prompt:        args[1],
				KeyEnv:        doc.Prompt.KeyEnv,
				KeyParam:      doc.Prompt.KeyParam,
				TextPath:      doc.Prompt.TextPath,
				RetryStatuses: doc.Retry.Statuses,
			})
			if err != nil {
				var hse *apicall.HTTPStatusError
				if errors.As(err, &hse) {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "HTTP Error: %d\n%s\n", hse.StatusCode, hse.Body)
					return &reportedError{err: err}
				}
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().String("key-env", "", "environment variable holding the API key (default GEMINI_API_KEY)")
	cmd.Flags().String("key-param", "", "query parameter carrying the API key (default key)")
	cmd.Flags().String("text-path", "", "gjson path of the answer text in the response")
	bindFlags(v, cmd.Flags(), "key-env", "key-param", "text-path")
	return cmd
}
