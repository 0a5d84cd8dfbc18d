package main

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixkme/grouprefresh/framework/app"
	"github.com/fixkme/grouprefresh/framework/config"
	"github.com/fixkme/grouprefresh/framework/core"
	"github.com/fixkme/grouprefresh/mlog"
	"github.com/fixkme/grouprefresh/util/times"
)

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "grouprefresh",
	Short: "Keeps a group list page fresh as its deadlines pass.",
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Load the page, mount its deadline components and refresh #group-list when they expire.",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.LoadConfig(configFile, envFile)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(context.Background())
		wg := &sync.WaitGroup{}
		defer func() {
			cancel()
			wg.Wait()
		}()
		level := mlog.ParseLevel(conf.LogLevel)
		if conf.LogPath != "" {
			if err = mlog.UseDefaultLogger(ctx, wg, conf.LogPath, conf.LogName, level, conf.LogStdOut); err != nil {
				return err
			}
		} else {
			mlog.UseStdLogger(level)
		}
		times.SetTimeOffset(time.Duration(conf.TimeOffsetMs) * time.Millisecond)
		mlog.Debugf("config:\n%s", conf.JsonFormat())

		lm := core.NewLoopModule(1024, 1024)
		return app.New().Run(lm, core.NewWatchModule(conf, lm))
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "json config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "dotenv file, applied before GROUPREFRESH_* variables")
	rootCmd.AddCommand(watchCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
