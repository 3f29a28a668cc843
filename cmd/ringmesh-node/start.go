// Copyright (C) 2025 ringmesh-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	ringmeshcrypto "github.com/ringmesh-project/ringmesh/crypto"
	"github.com/ringmesh-project/ringmesh/dht"
	"github.com/ringmesh-project/ringmesh/handler"
	"github.com/ringmesh-project/ringmesh/health"
	"github.com/ringmesh-project/ringmesh/internal/logger"
	"github.com/ringmesh-project/ringmesh/internal/metrics"
	"github.com/ringmesh-project/ringmesh/relay"
	"github.com/ringmesh-project/ringmesh/ringid"
	"github.com/ringmesh-project/ringmesh/session"
	"github.com/ringmesh-project/ringmesh/stabilize"
	"github.com/ringmesh-project/ringmesh/swarm"
	"github.com/ringmesh-project/ringmesh/swarm/wstransport"

	"github.com/ringmesh-project/ringmesh/config"
)

var (
	startListenAddr string
	startAdminAddr  string
	startBootstrap  string
	startNamespace  string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a ring member process",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVar(&startListenAddr, "listen", "", "overrides ring.listen_addr from config")
	startCmd.Flags().StringVar(&startAdminAddr, "admin-addr", "127.0.0.1:7946", "address the local admin/health/metrics surface listens on")
	startCmd.Flags().StringVar(&startBootstrap, "peer", "", "ws(s):// address of an existing ring member to bootstrap from")
	startCmd.Flags().StringVar(&startNamespace, "namespace", "", "overrides ring.namespace from config")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadStartConfig()
	if err != nil {
		return err
	}

	log := logger.GetDefaultLogger()
	if cfg.Logging != nil {
		if lvl, lerr := logger.ParseLevel(cfg.Logging.Level); lerr == nil {
			log.SetLevel(lvl)
		}
	}

	keyPair, err := generateIdentity(cfg.Ring.KeyAlgorithm)
	if err != nil {
		return fmt.Errorf("generate identity: %w", err)
	}
	self, err := relay.AddressOf(keyPair)
	if err != nil {
		return fmt.Errorf("derive address: %w", err)
	}
	log.Info("node identity derived", logger.String("did", self.String()), logger.String("namespace", cfg.Ring.Namespace))

	ring := dht.NewRing(self, cfg.Ring.SuccessorListSz)
	sessions := session.NewManager()
	sw := swarm.New(self, sessions)

	var relayTTL time.Duration
	if cfg.Relay != nil {
		relayTTL = cfg.Relay.MaxTTL
	}
	h := handler.New(keyPair, ring, sw, relayTTL, nil)

	listenAddr := cfg.Ring.ListenAddr
	if startListenAddr != "" {
		listenAddr = startListenAddr
	}
	h.SetTransportDialer(dialerFor(h, cfg.Swarm.DialTimeout, log))

	driver := stabilize.New(h, stabilize.Config{
		StabilizeInterval:  cfg.Stabilize.StabilizeInterval,
		FixFingersInterval: cfg.Stabilize.FixFingersInterval,
		CheckPredInterval:  cfg.Stabilize.CheckPredInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver.Start(ctx)
	defer driver.Stop()

	upgrader := &websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096}
	ringMux := http.NewServeMux()
	ringMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		t, err := wstransport.Accept(upgrader, w, r, cfg.Swarm.DialTimeout)
		if err != nil {
			log.Warn("websocket accept failed", logger.Error(err))
			return
		}
		go pumpInbound(ctx, h, t, listenAddr, log)
	})

	ringServer := &http.Server{Addr: listenAddr, Handler: ringMux}
	go func() {
		if err := ringServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ring listener failed", logger.Error(err))
		}
	}()
	defer ringServer.Close()

	checker := health.NewHealthChecker(5 * time.Second)
	checker.RegisterCheck("swarm_transports", health.SwarmHasTransportsCheck(sw.TransportCount))
	checker.RegisterCheck("stabilize_heartbeat", health.StabilizeHeartbeatCheck(driver.LastTick, 2*maxInterval(cfg.Stabilize)))

	adminMux := http.NewServeMux()
	adminMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := checker.GetOverallStatus(r.Context())
		if status != health.StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintf(w, "%s\n", status)
	})
	adminMux.Handle("/metrics", metrics.Handler())
	adminMux.HandleFunc("/admin/ring", ringStateHandler(h))
	adminMux.HandleFunc("/admin/connect", connectHandler(h))

	adminServer := &http.Server{Addr: startAdminAddr, Handler: adminMux}
	go func() {
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("admin listener failed", logger.Error(err))
		}
	}()
	defer adminServer.Close()

	if startBootstrap != "" {
		go bootstrap(ctx, h, startBootstrap, listenAddr, log)
	}

	log.Info("ringmesh-node started", logger.String("listen", listenAddr), logger.String("admin", startAdminAddr))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down", logger.String("did", self.String()))
	return nil
}

func loadStartConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Ring == nil {
		cfg.Ring = &config.RingConfig{}
	}
	if cfg.Relay == nil {
		cfg.Relay = &config.RelayConfig{}
	}
	if cfg.Swarm == nil {
		cfg.Swarm = &config.SwarmConfig{}
	}
	if cfg.Stabilize == nil {
		cfg.Stabilize = &config.StabilizeConfig{}
	}
	if startNamespace != "" {
		cfg.Ring.Namespace = startNamespace
	}
	if cfg.Ring.ListenAddr == "" {
		cfg.Ring.ListenAddr = "127.0.0.1:7945"
	}
	return cfg, nil
}

func generateIdentity(algorithm string) (ringmeshcrypto.KeyPair, error) {
	alg, err := ringid.ParseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	keyType := ringmeshcrypto.KeyTypeEd25519
	if alg == ringid.AlgorithmSecp256k1 {
		keyType = ringmeshcrypto.KeyTypeSecp256k1
	}

	mgr := ringmeshcrypto.NewManager()
	kp, err := mgr.GenerateKeyPair(keyType)
	if err != nil {
		return nil, err
	}
	if err := mgr.StoreKeyPair(kp); err != nil {
		return nil, fmt.Errorf("store identity key: %w", err)
	}
	return kp, nil
}

func maxInterval(cfg *config.StabilizeConfig) time.Duration {
	m := cfg.StabilizeInterval
	if cfg.FixFingersInterval > m {
		m = cfg.FixFingersInterval
	}
	if cfg.CheckPredInterval > m {
		m = cfg.CheckPredInterval
	}
	return m
}
