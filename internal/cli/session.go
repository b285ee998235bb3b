package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var captains []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft session",
		Long: `Create a draft session for two or more captains.

Prints the session id and the host secret. Captain and spectator secrets are
handed out over the live connection once the host joins.`,
		Example: `  draftctl create --captain Alice --captain Bob`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result CreateResult
			body := map[string]any{"captains": captains}

			if err := client.Post(cmd.Context(), "/api/v1/sessions", body, &result); err != nil {
				return err
			}

			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&captains, "captain", "c", nil, "Captain name, repeat for each captain (in turn order)")
	_ = cmd.MarkFlagRequired("captain")

	return cmd
}

func newResultCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "result <session-id>",
		Short: "Show the archived result of a finished session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result DraftResult
			path := "/api/v1/sessions/" + url.PathEscape(args[0]) + "/result"

			if err := client.Get(cmd.Context(), path, secret, &result); err != nil {
				return err
			}

			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Host secret of the session")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}
