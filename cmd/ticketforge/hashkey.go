package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// hashKeyCmd prints the bcrypt hash to put in server.api_key_hash.
func hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key",
		Short: "Hash an API key for server.api_key_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := promptSecret(cmd, "API key: ")
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}
			confirm, err := promptSecret(cmd, "Confirm API key: ")
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}
			if key != confirm {
				return errors.New("keys do not match")
			}
			hash, err := hashKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func hashKey(key string) (string, error) {
	if len(key) < 16 {
		return "", errors.New("api key must be at least 16 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(hash), nil
}

// promptSecret reads a secret from the terminal without echoing.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // G115: fd fits in int
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
