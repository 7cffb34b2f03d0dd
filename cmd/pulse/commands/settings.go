package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/alphapulse/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "분석 설정 파일 관리",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate <file>",
			Short: "설정 파일 검증 + 해시 출력",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out := cmd.OutOrStdout()

				cfg, _, err := settings.Load(args[0])
				if err != nil {
					printError(out, err.Error())
					return err
				}
				hash, err := settings.Hash(cfg)
				if err != nil {
					return err
				}

				printSuccess(out, "Settings are valid")
				printKeyValue(out, "Profile", cfg.Meta.ProfileID, 10)
				printKeyValue(out, "Version", cfg.Meta.Version, 10)
				printKeyValue(out, "Hash", hash, 10)
				return nil
			},
		},
		&cobra.Command{
			Use:   "defaults",
			Short: "기본 설정을 YAML로 출력",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := yaml.Marshal(settings.Default())
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
	)

	return cmd
}
