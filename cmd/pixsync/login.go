package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/pixsync/pixsync/internal/client/config"
	"github.com/pixsync/pixsync/internal/mediasdk"
	"github.com/pixsync/pixsync/internal/utils"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the PixSync server and save the session",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd.Root())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg := configFromViper()
		if cfg.ServerURL == "" {
			cfg.ServerURL = config.DefaultServerURL
		}

		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			email = cfg.Email
		}
		if email == "" {
			var err error
			email, err = promptLine("Email: ")
			if err != nil {
				return err
			}
		}

		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		tokens, err := mediasdk.Login(cmd.Context(), cfg.ServerURL, &mediasdk.LoginRequest{
			Email:    email,
			Password: password,
			DeviceID: utils.HWID,
		})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		cfg.Email = email
		cfg.RefreshToken = tokens.RefreshToken
		if err := cfg.Save(cfg.Path); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println(green("✓"), "logged in as", cyan(email))
		fmt.Println("  session saved to", cfg.Path)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("email", "e", "", "Account email")
	viper.BindPFlag("email", loginCmd.Flags().Lookup("email"))
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return promptLine("")
	}
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
