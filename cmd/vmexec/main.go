package main

import (
	"os"

	"github.com/tendermint/vmruntime/cmd/vmexec/commands"
	"github.com/tendermint/vmruntime/config"
	"github.com/tendermint/vmruntime/libs/cli"
	"github.com/tendermint/vmruntime/libs/log"
)

func main() {
	conf := config.DefaultConfig()

	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		panic(err)
	}

	rcmd := commands.RootCommand(conf, logger)
	rcmd.AddCommand(
		commands.MakeInitCommand(conf, logger),
		commands.MakePrologueCommand(conf, logger),
		commands.MakeCostTableCommand(conf),
		commands.VersionCmd,
	)

	os.Exit(cli.Run(rcmd))
}
