package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	flag "github.com/spf13/pflag"

	"fixture_replay/internal/config"
	"fixture_replay/internal/logging"
	"fixture_replay/internal/reporter"
	"fixture_replay/internal/runner"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("fixture_replay", flag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	configPath, _ := fs.GetString("config")
	cfg, err := config.Load(configPath, fs.Changed("config"))
	if err != nil {
		log.Printf("加载配置失败: %v", err)
		return 1
	}
	if err := cfg.ApplyFlags(fs); err != nil {
		log.Printf("加载配置失败: %v", err)
		return 1
	}

	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		log.Printf("初始化日志失败: %v", err)
		return 1
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := runner.New(cfg, logger, reporter.NewConsole(os.Stdout))

	startTime := time.Now()
	logger.Infow("开始回放", "root", cfg.RootDir, "accumulate_url", cfg.AccumulateURL)
	results, runErr := r.Run(ctx)
	logger.Infow("回放结束", "requests", len(results), "duration", time.Since(startTime))

	// 中途失败时也保存已完成的请求
	if cfg.TranscriptPath != "" {
		sheet, err := reporter.NewTranscript(cfg.TranscriptPath, cfg.SheetName).Write(results)
		if err != nil {
			logger.Errorw("保存回放记录失败", "path", cfg.TranscriptPath, "error", err)
			if runErr == nil {
				return 1
			}
		} else {
			logger.Infow("回放记录已保存", "path", cfg.TranscriptPath, "sheet", sheet)
		}
	}

	if runErr != nil {
		logger.Errorw("回放失败", "error", runErr)
		return 1
	}
	return 0
}
