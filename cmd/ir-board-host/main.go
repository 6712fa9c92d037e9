// ir-board-host runs the board core on a workstation: simulated pins and IR,
// the HTTP API on a TCP port, and optionally a real tty spliced in as the
// serial bridge. Used for controller integration work without hardware.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"irbridge-go/board"
	"irbridge-go/boards"
	"irbridge-go/httpapi"
	"irbridge-go/hwio"
	"irbridge-go/hwio/simio"
	"irbridge-go/store"
)

type config struct {
	Listen   string `yaml:"listen"`
	Variant  string `yaml:"variant"`
	Store    string `yaml:"store"`
	UniqueID uint32 `yaml:"unique_id"`
	Serial   struct {
		Device string `yaml:"device"`
	} `yaml:"serial"`
}

func loadConfig(path string) (config, error) {
	cfg := config{
		Listen:  ":8080",
		Variant: "compact",
		Store:   "ir-board.json",
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func variantDef(name string) (boards.Definition, bool) {
	switch name {
	case "compact":
		return boards.Compact, true
	case "extended":
		return boards.Extended, true
	}
	return boards.Definition{}, false
}

func main() {
	cfgPath := flag.String("config", "ir-board-host.yaml", "path to the yaml config")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	def, ok := variantDef(cfg.Variant)
	if !ok {
		log.Fatalf("config: unknown variant %q", cfg.Variant)
	}

	hw := simio.New()
	if cfg.UniqueID != 0 {
		hw.ID = cfg.UniqueID
	}
	if cfg.Serial.Device != "" {
		dev := cfg.Serial.Device
		hw.SerialFactory = func(_, _, baud int) (hwio.SerialPort, error) {
			return openTTY(dev, baud)
		}
		log.Printf("serial bridge passthrough on %s", dev)
	}

	kv, err := store.OpenFile(cfg.Store)
	if err != nil {
		log.Fatalf("store %s: %v", cfg.Store, err)
	}

	b := board.New(hw, kv, def)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	srv := &http.Server{Addr: cfg.Listen, Handler: httpapi.NewRouter(b)}
	go func() {
		log.Printf("ir-board-host %s variant=%s id=%s listening on %s",
			board.FirmwareVersion, def.Name, b.DiscoveryName(), cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()

	stop, stopCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopCancel()
	<-stop.Done()

	log.Print("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
}
