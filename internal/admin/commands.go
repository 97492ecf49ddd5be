package admin

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/startup"
	"github.com/spf13/cobra"
)

// NewRootCmd 创建 omikuji-admin 根命令
func NewRootCmd(load EnvLoader) *cobra.Command {
	var configDir string
	var env *Env

	root := &cobra.Command{
		Use:           "omikuji-admin",
		Short:         "御神签记录服务的运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			env, err = load(configDir)
			return err
		},
	}
	root.PersistentFlags().StringVarP(&configDir, "config", "c", "", "config.yaml 所在目录")

	getEnv := func() *Env { return env }
	root.AddCommand(
		newMigrateCmd(getEnv),
		newUsageCmd(getEnv),
		newStatsCmd(getEnv),
		newSnapshotCmd(getEnv),
	)
	return root
}

func newMigrateCmd(env func() *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "迁移所有表结构",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startup.Migrate(env().DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "迁移完成")
			return nil
		},
	}
}

func newUsageCmd(env func() *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "查看或重置用户的每日识别额度",
	}

	var jsonOutput bool
	show := &cobra.Command{
		Use:     "show <userID>",
		Short:   "显示用户今天剩余的识别次数",
		Example: "  omikuji-admin usage show 01890a5d-ac96-774b-bcce-b302099a8057 --json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := env().Limiter
			remaining, err := l.Remaining(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"userId":    args[0],
					"limit":     l.Limit(),
					"remaining": remaining,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: 剩余 %d/%d\n", args[0], remaining, l.Limit())
			return nil
		},
	}
	show.Flags().BoolVarP(&jsonOutput, "json", "j", false, "以JSON输出")

	reset := &cobra.Command{
		Use:   "reset <userID>",
		Short: "立即恢复用户今天的全部额度",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env().Limiter.Reset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已重置 %s 的额度\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}

func newStatsCmd(env func() *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <userID>",
		Short: "以JSON输出用户的统计",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := env().Stats.ForUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		},
	}
}

func newSnapshotCmd(env func() *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "把Redis中的计数立即写回数据库",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := env().Usage
			if store == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "计数存放在数据库中，无需快照")
				return nil
			}
			n, err := store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已写入 %d 个计数\n", n)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
