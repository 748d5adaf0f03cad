package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/ecscore/internal/config"
	"github.com/l1jgo/ecscore/internal/core/ecs"
	"github.com/l1jgo/ecscore/internal/scene"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ecsdump", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file (default config/ecsdump.toml or $ECSDUMP_CONFIG)")
	treeMode := fs.Bool("tree", false, "switch the hierarchy to tree mode before dumping")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ecsdump [-config path] [-tree] scene.yaml")
	}

	// 1. Load config
	path := *cfgPath
	if path == "" {
		path = "config/ecsdump.toml"
		if p := os.Getenv("ECSDUMP_CONFIG"); p != "" {
			path = p
		}
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load scene
	s, err := scene.Load(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}

	// 4. Build registry and hierarchy
	reg := ecs.NewRegistryWith(s.Name, cfg.ECS.Tunables(), log)
	defer reg.Delete()
	href := reg.RegisterComponents(ecs.HierrefComponent("href"))
	reg.CreateComponentPools()

	built, err := s.Build(reg, href)
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}
	h := reg.Hierarchy(built.Hierarchy)
	if *treeMode {
		h.SetTreeMode(true)
	}
	log.Info("scene built",
		zap.String("scene", s.Name),
		zap.Uint32("objects", h.Len()),
		zap.Bool("tree_mode", h.TreeMode()))

	// 5. Dump
	reg.PrintRegistry(out)
	fmt.Fprintln(out)
	h.Dump(out)
	fmt.Fprintln(out)
	for _, ent := range built.Entities {
		reg.PrintEntity(out, ent)
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
