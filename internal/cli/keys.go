package cli

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/dockhand/dockhand/pkg/config"
	"github.com/dockhand/dockhand/pkg/host"
	"github.com/dockhand/dockhand/pkg/sshkey"
)

// keysCommand creates the SSH key command group.
func (c *CLI) keysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect and register the GitHub SSH key",
	}

	cmd.AddCommand(c.keysStatusCommand())
	cmd.AddCommand(c.keysRegisterCommand())

	return cmd
}

// keysStatusCommand creates the "keys status" subcommand.
func (c *CLI) keysStatusCommand() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which SSH key would be used and its permission state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			account, err := host.ResolveAccount(username)
			if err != nil {
				return err
			}

			st := c.newKeyProvisioner(cfg, account, nil).Existing()
			if !st.Found {
				printInfo("No SSH key found for %s", account.Username)
				printNextStep("Create and register one", "dockhand keys register")
				return nil
			}

			printKeyValue("Type", st.Type)
			printKeyValue("Private", st.PrivatePath)
			printKeyValue("Public", st.PublicPath)

			warnMode(".ssh directory", st.DirMode, 0700)
			warnMode("private key", st.PrivateMode, 0600)
			warnMode("public key", st.PublicMode, 0644)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "inspect this user's keys")

	return cmd
}

// keysRegisterCommand creates the "keys register" subcommand.
func (c *CLI) keysRegisterCommand() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create the SSH key if needed and register it with GitHub",
		Long: `Ensure an SSH key exists with correct permissions, print it together
with the GitHub registration page, and test authentication until GitHub
accepts the key or you give up.

An existing key is never overwritten; its permissions are repaired
instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			account, err := host.ResolveAccount(username)
			if err != nil {
				return err
			}

			prov := c.newKeyProvisioner(cfg, account, newConsolePrompter())
			if err := prov.Provision(cmd.Context()); err != nil {
				return err
			}
			printSuccess("GitHub accepted the key")
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "register keys for this user")

	return cmd
}

// newKeyProvisioner builds the SSH key provisioner commands share.
func (c *CLI) newKeyProvisioner(cfg *config.Config, account host.Account, prompter sshkey.Prompter) *sshkey.Provisioner {
	return &sshkey.Provisioner{
		Runner:   c.runner(),
		Logger:   c.Logger,
		Account:  account,
		KeyType:  cfg.SSH.KeyType,
		Prompter: prompter,
		Announce: announceKey,
	}
}

// announceKey shows the public key and the GitHub registration page.
func announceKey(publicLine, registrationURL string) {
	printNewline()
	fmt.Println(StyleTitle.Render("SSH key for GitHub"))
	printNewline()
	fmt.Println(StyleValue.Render(publicLine))
	printNewline()
	printInfo("Add it at %s", StyleLink.Render(registrationURL))
	printDetail("paste the whole line, including the trailing comment")
	printNewline()
}

// warnMode flags a permission drift; keys register repairs it.
func warnMode(what string, got, want fs.FileMode) {
	if got == want {
		return
	}
	printWarning("%s is %04o, expected %04o (run keys register to repair)", what, got, want)
}
