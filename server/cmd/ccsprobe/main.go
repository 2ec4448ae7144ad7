package main

import (
	"flag"
	"log"
	"net/http"

	"ccs-probe/server/internal/api"
	"ccs-probe/server/internal/config"
	"ccs-probe/server/internal/session"
)

func main() {
	// 第一阶段以"本地可跑、可调试"为优先：参数用 flag，
	// 导出目录可用 CCSPROBE_EXPORT_DIR 环境变量覆盖。
	configPath := flag.String("config", "", "yaml config path (empty = defaults)")
	addr := flag.String("addr", "", "http listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	listen := cfg.Addr()
	if *addr != "" {
		listen = *addr
	}

	runs := session.NewInMemoryStore()
	server := api.NewServer(cfg, runs)

	httpServer := &http.Server{
		Addr:         listen,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("ccsprobe listening on %s (export dir: %s)", listen, cfg.Export.Dir)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
