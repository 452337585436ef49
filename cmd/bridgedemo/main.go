package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"WalletBridge/internal/config"
	"WalletBridge/internal/devwallet"
	"WalletBridge/internal/host"
	"WalletBridge/internal/signer"
	"WalletBridge/internal/transport"
	"WalletBridge/pkg/logger"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// main is the entry point of the bridge demo. It wires a dev wallet into the
// host registry and then exercises the adapter the way a UI would: connect,
// explore the chain through ethclient, sign a message, send a transaction.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("bridgedemo failed: %v", err)
	}
}

func run(ctx context.Context) error {
	var (
		configPath = flag.String("config", "", "path to bridge.json (defaults to $WALLETBRIDGE_CONFIG or configs/bridge.json)")
		flow       = flag.String("flow", "all", "demo flow: connect, explore, sign, send or all")
	)
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("WALLETBRIDGE_CONFIG")
	}
	if path == "" {
		path = filepath.Join("configs", "bridge.json")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()

	wallet, err := buildWallet(ctx, cfg)
	if err != nil {
		return err
	}
	defer wallet.Close()

	host.Inject(wallet)
	defer host.Eject()

	flows := []string{"connect", "explore", "sign", "send"}
	if *flow != "all" {
		flows = []string{*flow}
	}
	for _, name := range flows {
		var err error
		switch name {
		case "connect":
			err = runConnect(ctx)
		case "explore":
			err = runExplore(ctx)
		case "sign":
			err = runSign(ctx)
		case "send":
			err = runSend(ctx)
		default:
			err = fmt.Errorf("unknown flow %q", name)
		}
		if err != nil {
			return fmt.Errorf("flow %s: %w", name, err)
		}
	}
	return nil
}

// buildWallet constructs the in-process dev wallet from the configured chain
// definition. A missing private key yields an ephemeral account.
func buildWallet(ctx context.Context, cfg *config.Config) (*devwallet.Wallet, error) {
	defs, err := config.LoadChainDefinitions(cfg.Wallet.ChainConfig)
	if err != nil {
		return nil, err
	}

	name := cfg.Wallet.Chain
	if name == "" && len(defs.Chains) == 1 {
		for only := range defs.Chains {
			name = only
		}
	}
	def, ok := defs.Chains[name]
	if !ok {
		return nil, fmt.Errorf("chain %q not found in %s", name, cfg.Wallet.ChainConfig)
	}

	key := cfg.Wallet.PrivateKey
	walletCfg := devwallet.Config{
		Name:        name,
		ChainID:     def.ChainID,
		RPCURL:      def.RPCURL,
		AutoApprove: cfg.Wallet.AutoApprove,
	}
	if key == "" {
		walletCfg.Key, err = crypto.GenerateKey()
	} else {
		walletCfg.Key, err = crypto.HexToECDSA(strings.TrimPrefix(key, "0x"))
	}
	if err != nil {
		return nil, fmt.Errorf("load wallet key: %w", err)
	}
	return devwallet.New(ctx, walletCfg)
}

// runConnect performs the account handshake and then recovers the session
// silently, the way a returning page would.
func runConnect(ctx context.Context) error {
	s := signer.New()
	identity, err := s.Connect(ctx)
	if err != nil {
		return err
	}
	logger.L().Info("wallet connected",
		"address", identity.Address.Hex(),
		"chain_id", chainIDString(identity.ChainID),
	)

	recovered, err := s.ConnectSilent(ctx)
	if err != nil {
		return err
	}
	logger.L().Info("session recovered silently", "address", recovered.Address.Hex())
	return nil
}

// runExplore drives a stock ethclient through the bridge: every call below
// travels transport -> host provider -> upstream node.
func runExplore(ctx context.Context) error {
	client, err := transport.New().Dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	eth := ethclient.NewClient(client)

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return err
	}
	head, err := eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return err
	}
	logger.L().Info("chain head", "chain_id", chainID.String(), "block", head.Number.String())

	s := signer.New()
	identity, err := s.ConnectSilent(ctx)
	if err != nil {
		return err
	}
	balance, err := eth.BalanceAt(ctx, identity.Address, nil)
	if err != nil {
		return err
	}
	logger.L().Info("account balance", "address", identity.Address.Hex(), "wei", balance.String())
	return nil
}

// runSign asks the wallet for a personal_sign signature and checks locally
// that it recovers to the connected address.
func runSign(ctx context.Context) error {
	s := signer.New()
	identity, err := s.Connect(ctx)
	if err != nil {
		return err
	}

	message := []byte("walletbridge demo message")
	sig, err := s.SignMessage(ctx, message)
	if err != nil {
		return err
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), sig.Recoverable())
	if err != nil {
		return err
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != identity.Address {
		return fmt.Errorf("signature recovered to %s, want %s", recovered.Hex(), identity.Address.Hex())
	}
	logger.L().Info("message signed and verified", "signature", sig.Hex())
	return nil
}

// runSend submits a zero-value self transfer through the transport. The
// wallet signs and broadcasts atomically; the bridge only forwards the
// request and reports the resulting hash.
func runSend(ctx context.Context) error {
	s := signer.New()
	identity, err := s.ConnectSilent(ctx)
	if err != nil {
		return err
	}

	req, err := transport.NewRequest(1, "eth_sendTransaction", []any{map[string]any{
		"from":  identity.Address.Hex(),
		"to":    identity.Address.Hex(),
		"value": "0x0",
	}})
	if err != nil {
		return err
	}
	resp, err := transport.New().Send(ctx, req)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("send transaction: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	logger.L().Info("transaction submitted", "result", string(resp.Result))
	return nil
}

func chainIDString(id *big.Int) string {
	if id == nil {
		return "unknown"
	}
	return id.String()
}
