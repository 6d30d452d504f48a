package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/cinerec/guard"
	"github.com/s0up4200/cinerec/session"
)

var (
	username string
	email    string
	password string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long:  `Create an account on the service. Registering does not sign you in; run login afterwards.`,
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: guard.Protect(storeWatcher{}, func(cmd *cobra.Command, args []string, sess *session.Session) error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (user id %d)\n", sess.User.Username, sess.User.ID)
		if exp, ok := sess.ExpiresAt(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Session expires %s\n", exp.Local().Format("2006-01-02 15:04"))
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().StringVarP(&username, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	_ = loginCmd.MarkFlagRequired("username")

	registerCmd.Flags().StringVarP(&username, "username", "u", "", "username (3-50 characters)")
	registerCmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	registerCmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	_ = registerCmd.MarkFlagRequired("username")
	_ = registerCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	pw, err := passwordOrPrompt(cmd)
	if err != nil {
		return err
	}

	<-sessionLoaded
	sess, err := store.Login(cmd.Context(), username, pw)
	if err != nil {
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			return fmt.Errorf("login failed: %s", authErr.Message)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", sess.User.Username)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	pw, err := passwordOrPrompt(cmd)
	if err != nil {
		return err
	}

	result, err := store.Register(cmd.Context(), username, email, pw)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Account %s created. Run 'cinerec login -u %s' to sign in.\n", result.Username, result.Username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	<-sessionLoaded
	if err := store.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
	return nil
}

// passwordOrPrompt returns the --password flag or reads one line from stdin
func passwordOrPrompt(cmd *cobra.Command) (string, error) {
	if password != "" {
		return password, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return "", fmt.Errorf("no password given")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
