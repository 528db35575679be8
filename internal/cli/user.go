package cli

import (
	"fmt"
	"io"

	"stockledger-backend/internal/auth"

	"github.com/spf13/cobra"
)

// UserAddOptions holds flags for the user add command.
type UserAddOptions struct {
	*RootOptions
	DisplayName string
}

func NewUserCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}
	cmd.AddCommand(newUserAddCommand(root))
	return cmd
}

func newUserAddCommand(root *RootOptions) *cobra.Command {
	opts := &UserAddOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "add <username> <password>",
		Short: "Create a user who can log in to the API",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			user, err := auth.CreateUser(cmd.Context(), env.DB, args[0], opts.DisplayName, args[1])
			if err != nil {
				return WrapExitError(ExitFailure, "create user", err)
			}
			return opts.emit(cmd, user, func(w io.Writer) {
				fmt.Fprintf(w, "created user %s (id %d)\n", user.Username, user.ID)
			})
		},
	}

	cmd.Flags().StringVar(&opts.DisplayName, "display-name", "", "name shown in the UI")

	return cmd
}
