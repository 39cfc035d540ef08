package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/msalopek/intent_filler/filler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	logFormat  string
	configPath string
	txHash     string
	filePath   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "filler",
		Short: "Fills cross-chain orders opened on the origin settler",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Set the logging level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Set the log output format (json or text)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to the config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for opened orders and fill them",
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}

	fillCmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill the order opened by one origin transaction",
		Run: func(cmd *cobra.Command, args []string) {
			fillOne(common.HexToHash(txHash))
		},
	}
	fillCmd.Flags().StringVar(&txHash, "tx", "", "Origin transaction hash")
	fillCmd.MarkFlagRequired("tx")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Reconstruct and print the order opened by one origin transaction",
		Run: func(cmd *cobra.Command, args []string) {
			inspect(common.HexToHash(txHash))
		},
	}
	inspectCmd.Flags().StringVar(&txHash, "tx", "", "Origin transaction hash")
	inspectCmd.MarkFlagRequired("tx")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Fill orders from a JSON file of origin logs",
		Run: func(cmd *cobra.Command, args []string) {
			replay(filePath)
		},
	}
	replayCmd.Flags().StringVar(&filePath, "file", "", "JSON array of origin logs")
	replayCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(runCmd, fillCmd, inspectCmd, replayCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setupLogging() {
	if logFormat == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		output.FormatLevel = func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		}
		output.FormatMessage = func(i interface{}) string {
			return fmt.Sprintf("message: %s", i)
		}
		output.FormatFieldName = func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		}
		log.Logger = log.Output(output)
	}

	// Set log level
	switch strings.TrimSpace(strings.ToUpper(logLevel)) {
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "INFO":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

type app struct {
	cfg           *filler.Config
	origin        *ethclient.Client
	destination   *ethclient.Client
	observer      *filler.Observer
	reconstructor *filler.Reconstructor
	service       *filler.Service
}

func (a *app) Close() {
	if a.origin != nil {
		a.origin.Close()
	}
	if a.destination != nil {
		a.destination.Close()
	}
}

// setupApp dials the configured chains and wires the filler components. The
// destination side is only set up when withDestination is true.
func setupApp(ctx context.Context, withOrigin bool, withDestination bool) *app {
	cfg, err := filler.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(withDestination); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	a := &app{cfg: cfg}
	bindings := filler.MustInitBindings()
	topics := bindings.Topics(cfg.OriginSettler())

	if withOrigin {
		a.origin, err = ethclient.DialContext(ctx, cfg.Origin.RpcUrl)
		if err != nil {
			log.Fatal().Err(err).Str("network", filler.ORIGIN).Msg("failed to dial rpc")
		}
	}
	var originClient filler.OriginClient
	if a.origin != nil {
		originClient = a.origin
	}
	a.observer = filler.NewObserver(originClient, topics, &log.Logger)
	a.reconstructor = filler.NewReconstructor(bindings, topics, &log.Logger)

	var executor *filler.Executor
	if withDestination {
		a.destination, err = ethclient.DialContext(ctx, cfg.Destination.RpcUrl)
		if err != nil {
			log.Fatal().Err(err).Str("network", filler.DESTINATION).Msg("failed to dial rpc")
		}
		chainID, err := a.destination.ChainID(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("network", filler.DESTINATION).Msg("failed to get chain id")
		}
		signer, err := filler.NewKeySignerFromHex(cfg.PrivateKey, chainID)
		if err != nil {
			log.Fatal().Err(err).Send()
		}
		logBalance(ctx, a.destination, signer.Address())

		executor = filler.NewExecutor(a.destination, signer, bindings, cfg.DestinationSettler(), cfg.Destination.GasLimit, &log.Logger)
	}

	a.service = filler.NewService(a.observer, a.reconstructor, executor, cfg.StartBlock(), &log.Logger)
	return a
}

func logBalance(ctx context.Context, client *ethclient.Client, address common.Address) {
	wei, err := client.BalanceAt(ctx, address, nil)
	if err != nil {
		log.Warn().Err(err).Str("address", address.Hex()).Msg("failed to get filler balance")
		return
	}
	log.Info().
		Str("address", address.Hex()).
		Str("ETH", decimal.NewFromBigInt(wei, -18).String()).
		Str("network", filler.DESTINATION).
		Msg("current balance")
}

func run() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := setupApp(ctx, true, true)
	defer a.Close()

	if a.cfg.Server.Addr != "" {
		server := filler.NewServer(a.service.Stats(), &log.Logger)
		go func() {
			if err := server.RunWithContext(ctx, a.cfg.Server.Addr); err != nil {
				log.Error().Err(err).Msg("status server failed")
			}
		}()
	}

	log.Info().
		Str("origin_settler", a.cfg.Origin.Settler).
		Str("destination_settler", a.cfg.Destination.Settler).
		Msg("filler started")

	if err := a.service.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("filler stopped")
	}
	log.Info().Msg("shutdown complete")
}

func fillOne(hash common.Hash) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := setupApp(ctx, true, true)
	defer a.Close()

	batch, err := a.observer.TransactionLogs(ctx, hash)
	if err != nil {
		log.Fatal().Err(err).Str("tx_hash", hash.Hex()).Msg("failed to fetch origin tx")
	}
	fillTx, err := a.service.Handle(ctx, batch)
	if err != nil {
		os.Exit(1)
	}
	log.Info().Str("origin_tx", hash.Hex()).Str("fill_tx", fillTx.Hex()).Msg("order filled")
}

type inspectedAuthorization struct {
	ChainID   string         `json:"chain_id"`
	Address   common.Address `json:"address"`
	Nonce     uint64         `json:"nonce"`
	Signature hexutil.Bytes  `json:"signature"`
}

type inspectedOrder struct {
	ID             common.Hash              `json:"id"`
	OriginTx       common.Hash              `json:"origin_tx"`
	FillData       hexutil.Bytes            `json:"fill_data"`
	Authorizations []inspectedAuthorization `json:"authorizations"`
}

func inspect(hash common.Hash) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := setupApp(ctx, true, false)
	defer a.Close()

	batch, err := a.observer.TransactionLogs(ctx, hash)
	if err != nil {
		log.Fatal().Err(err).Str("tx_hash", hash.Hex()).Msg("failed to fetch origin tx")
	}
	order, err := a.reconstructor.Reconstruct(batch.Logs)
	if err != nil {
		log.Fatal().Err(err).Str("tx_hash", hash.Hex()).Msg("failed to reconstruct order")
	}

	result := inspectedOrder{
		ID:             order.ID,
		OriginTx:       hash,
		FillData:       order.FillData,
		Authorizations: []inspectedAuthorization{},
	}
	for _, w := range filler.ToWireList(order.AuthList).Authlist {
		result.Authorizations = append(result.Authorizations, inspectedAuthorization{
			ChainID:   w.ChainId.String(),
			Address:   w.CodeAddress,
			Nonce:     w.Nonce.Uint64(),
			Signature: w.Signature,
		})
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Send()
	}
	fmt.Println(string(out))
}

func replay(path string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := setupApp(ctx, false, true)
	defer a.Close()

	batches, err := a.observer.LogsFromFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("failed to load logs from file")
	}
	a.service.HandleAll(ctx, batches)
}
