// Package cli 提供 dormform 的命令行入口：serve 启动 HTTP 接口，validate 离线验证表单取值
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dormform",
		Short: "Dormitory application form engine",
		Long: `Dormitory application form engine

Serves form sessions over HTTP (validation, error navigation, wizard progress,
preset dates and submission) and validates saved form values offline.`,
		Example: `  # Start the HTTP API
  dormform serve --config dormform.yaml

  # Validate saved accommodation values against a group catalogue
  dormform validate --file values.json --groups groups.json

  # Validate contract values
  dormform validate --form contract --file contract.json`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to config file (YAML)")

	root.AddCommand(newServeCmd(), newValidateCmd())
	return root
}

// Execute 运行根命令
func Execute() error {
	return NewRootCmd().Execute()
}
