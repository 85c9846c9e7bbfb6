package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stakeledger/config"
	"stakeledger/core/events"
	"stakeledger/core/state"
	nativecommon "stakeledger/native/common"
	"stakeledger/native/staking"
	"stakeledger/observability/logging"
	"stakeledger/storage"
)

func main() {
	var (
		cfgPath     string
		metricsAddr string
		inspect     string
		paused      bool
	)
	flag.StringVar(&cfgPath, "config", "stakeledger.toml", "path to the staking config (TOML or YAML)")
	flag.StringVar(&metricsAddr, "metrics", "127.0.0.1:9464", "address serving /metrics")
	flag.StringVar(&inspect, "inspect", "", "print the stake account stored under this base58 handle and exit")
	flag.BoolVar(&paused, "paused", false, "start with the staking module paused")
	flag.Parse()

	node, err := open(cfgPath)
	if err != nil {
		log.Fatalf("stakeledgerd: %v", err)
	}
	defer node.Close()
	if paused {
		node.pauses.Set("staking", true)
	}

	if inspect != "" {
		if err := node.inspect(os.Stdout, inspect); err != nil {
			log.Fatalf("stakeledgerd: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := node.serveMetrics(ctx, metricsAddr); err != nil {
		log.Fatalf("stakeledgerd: %v", err)
	}
}

// node holds the wired ledger components of a single process.
type node struct {
	cfg    *config.GlobalConfig
	db     storage.Database
	engine *staking.Engine
	tokens *state.TokenLedger
	pauses *nativecommon.Pauses
	logger *slog.Logger
}

func open(cfgPath string) (*node, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	params, err := cfg.Staking()
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(logging.Options{
		Service: "stakeledgerd",
		Env:     strings.TrimSpace(os.Getenv("STAKELEDGER_ENV")),
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    cfg.Logging.File,
	})

	db, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	n := &node{
		cfg:    cfg,
		db:     db,
		tokens: state.NewTokenLedger(db, params.TokenMint),
		pauses: nativecommon.NewPauses(),
		logger: logger,
	}
	n.engine = staking.NewEngine(params)
	n.engine.SetState(state.NewStakingStore(db))
	n.engine.SetTransferer(n.tokens)
	n.engine.SetPauses(n.pauses)
	n.engine.SetEmitter(events.LogEmitter{Logger: logger})
	n.engine.SetLogger(logger)

	logger.Info("staking ledger opened",
		"storage", cfg.Storage.Backend,
		"max_positions", params.MaxPositions,
		"epoch_duration", params.EpochDuration,
		logging.ShortKey("mint", params.TokenMint.String()),
		logging.ShortKey("governance", params.GovernanceAuthority.String()))
	return n, nil
}

func (n *node) Close() {
	if n.db != nil {
		n.db.Close()
	}
}

type positionReport struct {
	Index     uint32 `json:"index"`
	Product   string `json:"product"`
	Publisher string `json:"publisher"`
	Amount    uint64 `json:"amount"`
}

// paramsReport echoes the chain-wide parameters the account was read under.
type paramsReport struct {
	Program           string `json:"program"`
	Config            string `json:"config"`
	Governance        string `json:"governance"`
	Mint              string `json:"mint"`
	EpochDuration     uint64 `json:"epochDuration"`
	UnlockingDuration uint8  `json:"unlockingDuration"`
	CurrentEpoch      uint64 `json:"currentEpoch"`
}

type accountReport struct {
	Handle       string           `json:"handle"`
	Owner        string           `json:"owner"`
	Custody      string           `json:"custody"`
	Status       string           `json:"status"`
	Schedule     string           `json:"schedule"`
	TotalAmount  uint64           `json:"totalAmount"`
	Staked       uint64           `json:"staked"`
	Locked       uint64           `json:"locked"`
	Withdrawable uint64           `json:"withdrawable"`
	Capacity     int              `json:"capacity"`
	Positions    []positionReport `json:"positions"`
	Params       paramsReport     `json:"params"`
}

func (n *node) inspect(w io.Writer, rawHandle string) error {
	handle, err := solana.PublicKeyFromBase58(strings.TrimSpace(rawHandle))
	if err != nil {
		return fmt.Errorf("parse handle: %w", err)
	}
	acct, err := n.engine.StakeAccount(handle)
	if err != nil {
		return err
	}
	staked, err := acct.Staked()
	if err != nil {
		return err
	}
	now := n.engine.Now()
	withdrawable, err := acct.Withdrawable(now)
	if err != nil {
		return err
	}
	params, err := n.paramsReport()
	if err != nil {
		return err
	}
	report := accountReport{
		Handle:       handle.String(),
		Owner:        acct.Metadata.Owner.String(),
		Custody:      acct.Metadata.Custody.String(),
		Status:       acct.Status().String(),
		Schedule:     acct.Custody.Vesting.Kind.String(),
		TotalAmount:  acct.Custody.TotalAmount,
		Staked:       staked,
		Locked:       acct.Custody.Locked(now),
		Withdrawable: withdrawable,
		Capacity:     acct.Positions.Capacity(),
		Positions:    []positionReport{},
		Params:       params,
	}
	for _, p := range acct.Positions.Active() {
		report.Positions = append(report.Positions, positionReport{
			Index:     uint32(p.Index),
			Product:   p.Position.Product.String(),
			Publisher: p.Position.Publisher.String(),
			Amount:    p.Position.Amount,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (n *node) paramsReport() (paramsReport, error) {
	auth := n.engine.Authorizer()
	cfgAddr, err := auth.ConfigAddress()
	if err != nil {
		return paramsReport{}, err
	}
	params := n.engine.Params()
	return paramsReport{
		Program:           auth.ProgramID().String(),
		Config:            cfgAddr.Address.String(),
		Governance:        params.GovernanceAuthority.String(),
		Mint:              params.TokenMint.String(),
		EpochDuration:     params.EpochDuration,
		UnlockingDuration: params.UnlockingDuration,
		CurrentEpoch:      n.engine.CurrentEpoch(),
	}, nil
}

func (n *node) serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	serverErr := make(chan error, 1)
	go func() {
		n.logger.Info("metrics listening", "addr", addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		n.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	}
}
