package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TopiaNetwork/dacore/configuration"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	tpnode "github.com/TopiaNetwork/dacore/node"
)

const (
	nodeFuncName = "node"
	nodeCmdDes   = "Operate a node: start, init."
)

var configPath string

func loadConfiguration() (*configuration.Configuration, error) {
	if configPath == "" {
		return configuration.DefConfiguration(), nil
	}
	return configuration.LoadConfiguration(configPath)
}

func createMainLogger(logConfig *configuration.LogConfiguration) (tplog.Logger, error) {
	level, err := tplogcmm.ParseLogLevel(logConfig.Level)
	if err != nil {
		return nil, err
	}
	format, err := tplog.ParseLogFormat(logConfig.Format)
	if err != nil {
		return nil, err
	}
	output, err := tplog.ParseLogOutput(logConfig.Output)
	if err != nil {
		return nil, err
	}

	return tplog.CreateMainLogger(level, format, output, logConfig.FilePath)
}

var nodeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the node.",
	Long:  `Starts a node that proposes and votes on data availability.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 {
			return fmt.Errorf("trailing args detected")
		}
		// Parsing of the command line is done so silence cmd usage
		cmd.SilenceUsage = true

		config, err := loadConfiguration()
		if err != nil {
			return err
		}
		mainLog, err := createMainLogger(config.LogConfig)
		if err != nil {
			return err
		}

		n, err := tpnode.NewNode(config, mainLog)
		if err != nil {
			return err
		}
		return n.Run()
	},
}

var initOutput string

var nodeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Writes the default configuration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 {
			return fmt.Errorf("trailing args detected")
		}
		cmd.SilenceUsage = true

		config := configuration.DefConfiguration()
		path := initOutput
		if path == "" {
			path = filepath.Join(config.NodeConfig.RootPath, "config.json")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := config.Save(path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func startCmd() *cobra.Command {
	flags := nodeStartCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "the node configuration file, defaults are used when empty")
	return nodeStartCmd
}

func initCmd() *cobra.Command {
	flags := nodeInitCmd.PersistentFlags()
	flags.StringVarP(&initOutput, "output", "o", "", "where to write the configuration, defaults to <root>/config.json")
	return nodeInitCmd
}

var nodeCmd = &cobra.Command{
	Use:   nodeFuncName,
	Short: fmt.Sprint(nodeCmdDes),
	Long:  fmt.Sprint(nodeCmdDes),
}

func NodeCmd() *cobra.Command {
	nodeCmd.AddCommand(startCmd())
	nodeCmd.AddCommand(initCmd())

	return nodeCmd
}
