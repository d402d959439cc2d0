package users

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/inkdrop/inkdrop/cmd/cli/client"
	"github.com/inkdrop/inkdrop/cmd/cli/config"
	"github.com/inkdrop/inkdrop/cmd/cli/output"
	"github.com/inkdrop/inkdrop/internal/models"
	"github.com/spf13/cobra"
)

// InitUsers registers public profile commands on the root command.
func InitUsers(rootCmd *cobra.Command) {
	rootCmd.AddCommand(profileCmd())
}

func profileCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "profile [username]",
		Short: "Show a user's public profile and published posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				User  models.UserPublic `json:"user"`
				Posts []models.Post     `json:"posts"`
			}
			c := client.New(config.APIURL())
			if err := c.Do(cmd.Context(), http.MethodGet, "/api/users/"+url.PathEscape(args[0]), "", nil, &resp); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(cmd.OutOrStdout(), resp)
			}
			output.User(cmd.OutOrStdout(), resp.User)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d published post(s)\n", len(resp.Posts))
			output.Posts(cmd.OutOrStdout(), resp.Posts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")

	return cmd
}
