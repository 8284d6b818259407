package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/v0xg/autoform/internal/update"
)

func updateCommand() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for a newer release and optionally install it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			u := update.New(cfg.Update.VersionURL, cfg.Update.ReleaseURL)

			rel, err := u.Check(cmd.Context(), version)
			if err != nil {
				return fmt.Errorf("update check failed: %w", err)
			}
			if !rel.Newer {
				pterm.Success.Printfln("up to date (v%s)", version)
				return nil
			}
			pterm.Warning.Printfln("v%s is available (running v%s)", rel.Latest, version)
			if !apply {
				pterm.Info.Println("run `autoform update --apply` to install it")
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return err
			}
			spinner, _ := pterm.DefaultSpinner.Start("downloading " + update.AssetName())
			if err := u.Apply(cmd.Context(), exe); err != nil {
				spinner.Fail("update failed")
				return err
			}
			spinner.Success(fmt.Sprintf("updated to v%s, restarting", rel.Latest))
			return update.Relaunch(exe, []string{"version"})
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Download and install the new release, then relaunch")
	return cmd
}
