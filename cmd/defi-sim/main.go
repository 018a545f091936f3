package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/firattale/damn-vulnerable-defi/pkg/access"
	"github.com/firattale/damn-vulnerable-defi/pkg/bank"
	"github.com/firattale/damn-vulnerable-defi/pkg/config"
	"github.com/firattale/damn-vulnerable-defi/pkg/core"
	"github.com/firattale/damn-vulnerable-defi/pkg/lending"
	"github.com/firattale/damn-vulnerable-defi/pkg/logging"
	"github.com/firattale/damn-vulnerable-defi/pkg/market"
	"github.com/firattale/damn-vulnerable-defi/pkg/metrics"
	"github.com/firattale/damn-vulnerable-defi/pkg/oracle"
	"github.com/firattale/damn-vulnerable-defi/pkg/reserve"
	"github.com/firattale/damn-vulnerable-defi/pkg/server/api"
	"github.com/firattale/damn-vulnerable-defi/pkg/version"
)

// roleTrustedSource is the oracle's price-reporting capability.
const roleTrustedSource core.Role = "trusted_source"

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
	runDemo    = flag.Bool("demo", false, "Run a scripted end-to-end scenario after startup")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("defi-sim version %s\n", version.Version)
		os.Exit(0)
	}

	// Optional .env for values expanded inside the YAML.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Starting defi-sim", "version", version.Version)

	world, err := buildWorld(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build world", "error", err.Error())
	}

	if cfg.Metrics.Enabled {
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server stopped", "error", err.Error())
			}
		}()
	}

	server := api.NewServer(cfg.Server.HTTP.Addr, cfg.Oracle.Symbol,
		world.oracle, world.market, world.pool, world.reserve, world.ledger, logger)

	var ws *api.WebSocketServer
	if cfg.Server.WebSocket.Enabled {
		ws = api.NewWebSocketServer(world.bus, logger)
		server.SetWebSocketServer(ws)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	if *runDemo {
		runScenario(world, cfg.Oracle.Symbol, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("Server stopped", "error", err.Error())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("Failed to stop server", "error", err.Error())
	}
	if ws != nil {
		ws.Stop()
	}
}

// world holds the wired-up component graph.
type world struct {
	deployer core.Address
	registry *access.Registry
	bus      *core.Bus
	ledger   *bank.Ledger
	oracle   *oracle.Oracle
	market   *market.Marketplace
	reserve  *reserve.Pool
	pool     *lending.Pool
	sources  []core.Address
}

// buildWorld constructs and seeds every component from configuration:
// roles granted, oracle bootstrapped, marketplace funded, reserve and
// lending pool stocked.
func buildWorld(cfg *config.Config, logger *logging.Logger) (*world, error) {
	deployer := core.NewAddress()
	registry := access.NewRegistry(deployer)
	bus := core.NewBus()
	ledger := bank.NewLedger()

	sources := make([]core.Address, len(cfg.Oracle.Sources))
	for i, s := range cfg.Oracle.Sources {
		sources[i] = core.Address(s)
		if err := registry.Grant(deployer, roleTrustedSource, sources[i]); err != nil {
			return nil, err
		}
	}

	orc, err := oracle.New(registry, roleTrustedSource, cfg.Oracle.MinSources, deployer, bus, logger.With("oracle"))
	if err != nil {
		return nil, err
	}

	if len(cfg.Oracle.InitialPrices) > 0 {
		bootSources := make([]core.Address, len(cfg.Oracle.InitialPrices))
		bootSymbols := make([]string, len(cfg.Oracle.InitialPrices))
		bootPrices := make([]decimal.Decimal, len(cfg.Oracle.InitialPrices))
		for i, ip := range cfg.Oracle.InitialPrices {
			price, err := config.Decimal(ip.Price)
			if err != nil {
				return nil, err
			}
			bootSources[i] = core.Address(ip.Source)
			bootSymbols[i] = ip.Symbol
			bootPrices[i] = price
		}
		if err := orc.Bootstrap(deployer, bootSources, bootSymbols, bootPrices); err != nil {
			return nil, err
		}
	}

	marketFunds, err := config.Decimal(cfg.Market.InitialFunds)
	if err != nil {
		return nil, err
	}
	mkt := market.New(core.NewAddress(), cfg.Oracle.Symbol, orc, ledger, bus, logger.With("market"))
	ledger.Mint(mkt.Address(), marketFunds)

	refBalance, err := config.Decimal(cfg.Lending.Reserve.ReferenceBalance)
	if err != nil {
		return nil, err
	}
	assetBalance, err := config.Decimal(cfg.Lending.Reserve.AssetBalance)
	if err != nil {
		return nil, err
	}
	res, err := reserve.NewPool(refBalance, assetBalance)
	if err != nil {
		return nil, err
	}

	poolTokens, err := config.Decimal(cfg.Lending.PoolTokens)
	if err != nil {
		return nil, err
	}
	token := bank.NewToken(cfg.Lending.TokenSymbol)
	pool := lending.New(core.NewAddress(), cfg.Lending.CollateralFactor, res, token, ledger, bus, logger.With("lending"))
	token.Mint(pool.Address(), poolTokens)

	logger.Info("World built",
		"sources", len(sources),
		"market", mkt.Address(),
		"pool", pool.Address())

	return &world{
		deployer: deployer,
		registry: registry,
		bus:      bus,
		ledger:   ledger,
		oracle:   orc,
		market:   mkt,
		reserve:  res,
		pool:     pool,
		sources:  sources,
	}, nil
}

// runScenario walks the primitives through one full cycle: fresh price
// reports, a buy, a sell and a borrow, logging each step's outcome.
func runScenario(w *world, symbol string, logger *logging.Logger) {
	for i, source := range w.sources {
		price := decimal.NewFromInt(int64(100 + 10*i))
		if err := w.oracle.PostPrice(source, symbol, price); err != nil {
			logger.Error("Scenario: post price failed", "error", err.Error())
			return
		}
	}

	consensus, err := w.oracle.ConsensusPrice(symbol)
	if err != nil {
		logger.Error("Scenario: consensus failed", "error", err.Error())
		return
	}
	logger.Info("Scenario: consensus price", "symbol", symbol, "price", consensus.String())

	buyer := core.NewAddress()
	w.ledger.Mint(buyer, consensus.Mul(decimal.NewFromInt(2)))

	id, err := w.market.Buy(buyer, consensus)
	if err != nil {
		logger.Error("Scenario: buy failed", "error", err.Error())
		return
	}
	logger.Info("Scenario: bought", "id", id, "price", consensus.String())

	if err := w.market.Assets().Approve(buyer, id, w.market.Address()); err != nil {
		logger.Error("Scenario: approve failed", "error", err.Error())
		return
	}
	if err := w.market.Sell(buyer, id); err != nil {
		logger.Error("Scenario: sell failed", "error", err.Error())
		return
	}
	logger.Info("Scenario: sold", "id", id)

	amount := decimal.NewFromInt(100)
	required, err := w.pool.RequiredCollateral(amount)
	if err != nil {
		logger.Error("Scenario: collateral quote failed", "error", err.Error())
		return
	}
	w.ledger.Mint(buyer, required)
	if err := w.pool.Borrow(buyer, amount, buyer, required); err != nil {
		logger.Error("Scenario: borrow failed", "error", err.Error())
		return
	}
	logger.Info("Scenario: borrowed", "amount", amount.String(), "deposit", required.String())
}
