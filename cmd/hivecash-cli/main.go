// hivecash-cli is a command-line HiveCash wallet.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/term"

	"github.com/hivecuba/hivecash/config"
	"github.com/hivecuba/hivecash/internal/log"
	"github.com/hivecuba/hivecash/internal/mint"
	"github.com/hivecuba/hivecash/internal/storage"
	"github.com/hivecuba/hivecash/internal/wallet"
	"github.com/hivecuba/hivecash/pkg/fragment"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.Default()
	configPath := ""

	// Scan for global flags that appear before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			cfg.DataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			cfg.DataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--mint" && len(args) > 1:
			cfg.Mint.URL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--mint="):
			cfg.Mint.URL = args[0][len("--mint="):]
			args = args[1:]
		case args[0] == "--config" && len(args) > 1:
			configPath = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--config="):
			configPath = args[0][len("--config="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	values, err := config.LoadFile(configPath)
	if err != nil {
		fatal("load config: %v", err)
	}
	if err := config.ApplyFileConfig(cfg, values); err != nil {
		fatal("apply config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		fatal("invalid config: %v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "init":
		cmdInit(cfg)
	case "restore":
		cmdRestore(cfg)
	case "balance":
		cmdBalance(cfg)
	case "history":
		cmdHistory(cfg)
	case "sync":
		cmdSync(cfg)
	case "send":
		cmdSend(cfg, cmdArgs)
	case "send-onchain":
		cmdSendOnchain(cfg, cmdArgs)
	case "receive":
		cmdReceive(cfg, cmdArgs)
	case "mint":
		cmdMint(cfg, cmdArgs)
	case "reset":
		cmdReset(cfg)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: hivecash-cli [global flags] <command> [flags]

Global flags:
  --datadir <path>    Data directory (default: ~/.hivecash)
  --mint <url>        Mint endpoint (default: https://mint.hivecuba.com)
  --config <path>     Config file (default: <datadir>/hivecash.conf)

Commands:
  init                            Create a new wallet
  restore                         Restore a wallet from a recovery phrase
  balance                         Show spendable balance
  history                         Show transaction history
  sync                            Reconcile with the mint
  send --amount <HBD> [--qr] [--fragment-size <n>]
                                  Create an offline payment token
  send-onchain --to <account> --amount <HBD> [--memo <text>]
                                  Send on-chain via the mint
  receive <token | fragment...>   Ingest an offline payment token
  mint --amount <HBD> [--qr]      Request new value against a deposit
  reset                           Wipe all local wallet state
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func openDB(cfg *config.Config) storage.DB {
	if err := os.MkdirAll(cfg.WalletDir(), 0o700); err != nil {
		fatal("create wallet dir: %v", err)
	}
	db, err := storage.NewBadger(cfg.WalletDir())
	if err != nil {
		fatal("open wallet database: %v", err)
	}
	return db
}

func openStore(cfg *config.Config) (*wallet.Store, storage.DB) {
	db := openDB(cfg)
	store, err := wallet.OpenStore(db)
	if err != nil {
		fatal("open wallet: %v", err)
	}
	return store, db
}

// openWallet unlocks the wallet with the user's password. The mint public
// key comes from config when pinned, otherwise from the mint itself, so
// unlocking needs connectivity unless mint.pubkey is set.
func openWallet(cfg *config.Config) (*wallet.Wallet, storage.DB) {
	store, db := openStore(cfg)
	if !store.HasPhrase() {
		fatal("no wallet found; run 'hivecash-cli init' or 'restore' first")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	encrypted, err := store.LoadPhrase()
	if err != nil {
		fatal("load wallet: %v", err)
	}
	phrase, err := wallet.DecryptPhrase(encrypted, string(password))
	if err != nil {
		fatal("unlock wallet (wrong password?): %v", err)
	}

	deriver, err := wallet.NewDeriver(phrase)
	if err != nil {
		fatal("derive keys: %v", err)
	}
	client := mint.New(cfg.Mint.URL, cfg.Mint.Timeout)

	mintPub := cfg.Mint.PublicKey
	if mintPub == "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Mint.Timeout)
		defer cancel()
		mintPub, err = client.PublicKey(ctx)
		if err != nil {
			fatal("fetch mint public key (pin mint.pubkey in the config to avoid this lookup): %v", err)
		}
	}

	w, err := wallet.New(wallet.Params{
		Store:         store,
		Deriver:       deriver,
		Mint:          client,
		MintPublicKey: mintPub,
		GapLimit:      cfg.Sync.GapLimit,
		SyncCooldown:  cfg.Sync.Cooldown,
	})
	if err != nil {
		fatal("open wallet: %v", err)
	}
	return w, db
}

func savePhrase(store *wallet.Store, phrase string) {
	password, err := readPassword("New password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}

	encrypted, err := wallet.EncryptPhrase(phrase, string(password))
	if err != nil {
		fatal("encrypt phrase: %v", err)
	}
	if err := store.SavePhrase(encrypted); err != nil {
		fatal("save wallet: %v", err)
	}
}

func cmdInit(cfg *config.Config) {
	store, db := openStore(cfg)
	defer db.Close()

	if store.HasPhrase() {
		fatal("a wallet already exists in %s; use 'reset' to discard it first", cfg.WalletDir())
	}

	phrase, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate recovery phrase: %v", err)
	}

	fmt.Println("Your recovery phrase (write it down, it is the only backup):")
	fmt.Println()
	fmt.Printf("    %s\n", phrase)
	fmt.Println()

	savePhrase(store, phrase)

	if _, err := os.Stat(cfg.ConfigFile()); os.IsNotExist(err) {
		if err := config.WriteDefaultConfig(cfg.ConfigFile()); err == nil {
			fmt.Printf("Wrote default config to %s\n", cfg.ConfigFile())
		}
	}
	fmt.Println("Wallet created.")
}

func cmdRestore(cfg *config.Config) {
	store, db := openStore(cfg)
	defer db.Close()

	if store.HasPhrase() {
		fatal("a wallet already exists in %s; use 'reset' to discard it first", cfg.WalletDir())
	}

	phrase, err := readLine("Recovery phrase: ")
	if err != nil {
		fatal("read phrase: %v", err)
	}
	if !wallet.ValidateMnemonic(phrase) {
		fatal("invalid recovery phrase")
	}

	savePhrase(store, phrase)
	fmt.Println("Wallet restored. Run 'hivecash-cli sync' to recover your coins.")
}

func cmdBalance(cfg *config.Config) {
	store, db := openStore(cfg)
	defer db.Close()

	var spendable, pending int64
	for _, u := range store.UTXOs() {
		if u.Used {
			continue
		}
		switch u.Status {
		case wallet.StatusPayed:
			spendable += u.Amount
		case wallet.StatusNew, wallet.StatusUnmint:
			pending += u.Amount
		}
	}
	fmt.Printf("Spendable: %s HBD\n", wallet.FormatHBD(spendable))
	if pending > 0 {
		fmt.Printf("Pending:   %s HBD\n", wallet.FormatHBD(pending))
	}
	if tokens := store.Tokens(); len(tokens) > 0 {
		var held int64
		for _, t := range tokens {
			held += t.Amount
		}
		fmt.Printf("Held tokens: %s HBD (%d, redeemed on next sync)\n", wallet.FormatHBD(held), len(tokens))
	}
}

func cmdHistory(cfg *config.Config) {
	store, db := openStore(cfg)
	defer db.Close()

	txs := store.Transactions()
	if len(txs) == 0 {
		fmt.Println("No transactions.")
		return
	}
	for _, tx := range txs {
		line := fmt.Sprintf("%s  %-7s %-7s %12s HBD  %s",
			tx.Timestamp.Local().Format("2006-01-02 15:04"),
			tx.Type, tx.Origin, wallet.FormatHBD(tx.Amount), tx.Status)
		if tx.Recipient != "" {
			line += "  to " + tx.Recipient
		}
		if tx.Memo != "" {
			line += "  (" + tx.Memo + ")"
		}
		fmt.Println(line)
	}
}

func cmdSync(cfg *config.Config) {
	w, db := openWallet(cfg)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := w.Sync(ctx)
	if err != nil {
		fatal("sync: %v", err)
	}
	if res.Recovered > 0 {
		fmt.Printf("Recovered %d coin(s)\n", res.Recovered)
	}
	if res.Drained > 0 {
		fmt.Printf("Redeemed %d offline token(s)\n", res.Drained)
	}
	if res.Refreshed > 0 {
		fmt.Printf("Updated %d coin(s)\n", res.Refreshed)
	}
	fmt.Printf("Balance: %s HBD\n", wallet.FormatHBD(res.Balance))
}

func cmdSend(cfg *config.Config, args []string) {
	var amountStr string
	showQR := false
	fragmentSize := 0
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--amount" && i+1 < len(args):
			i++
			amountStr = args[i]
		case args[i] == "--qr":
			showQR = true
		case args[i] == "--fragment-size" && i+1 < len(args):
			i++
			fmt.Sscanf(args[i], "%d", &fragmentSize)
		default:
			fatal("Usage: hivecash-cli send --amount <HBD> [--qr] [--fragment-size <n>]")
		}
	}
	if amountStr == "" {
		fatal("Usage: hivecash-cli send --amount <HBD> [--qr] [--fragment-size <n>]")
	}
	amount, err := wallet.ParseHBD(amountStr)
	if err != nil {
		fatal("parse amount: %v", err)
	}

	w, db := openWallet(cfg)
	defer db.Close()

	token, err := w.SendOffline(amount)
	if err != nil {
		fatal("send: %v", err)
	}

	fmt.Printf("Payment token for %s HBD:\n\n%s\n\n", wallet.FormatHBD(amount), token)

	if fragmentSize > 0 || (showQR && len(token) > 1200) {
		if fragmentSize <= 0 {
			fragmentSize = 800
		}
		parts, err := fragment.Encode([]byte(token), fragmentSize)
		if err != nil {
			fatal("fragment token: %v", err)
		}
		for i, part := range parts {
			fmt.Printf("Part %d/%d:\n", i+1, len(parts))
			if showQR {
				printQR(part)
			} else {
				fmt.Println(part)
			}
		}
		return
	}
	if showQR {
		printQR(token)
	}
}

func cmdSendOnchain(cfg *config.Config, args []string) {
	var to, amountStr, memo string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--to" && i+1 < len(args):
			i++
			to = args[i]
		case args[i] == "--amount" && i+1 < len(args):
			i++
			amountStr = args[i]
		case args[i] == "--memo" && i+1 < len(args):
			i++
			memo = args[i]
		default:
			fatal("Usage: hivecash-cli send-onchain --to <account> --amount <HBD> [--memo <text>]")
		}
	}
	if to == "" || amountStr == "" {
		fatal("Usage: hivecash-cli send-onchain --to <account> --amount <HBD> [--memo <text>]")
	}
	amount, err := wallet.ParseHBD(amountStr)
	if err != nil {
		fatal("parse amount: %v", err)
	}

	w, db := openWallet(cfg)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mint.Timeout)
	defer cancel()

	if err := w.SendOnchain(ctx, to, amount, memo); err != nil {
		fatal("send: %v", err)
	}
	fmt.Printf("Sent %s HBD to %s\n", wallet.FormatHBD(amount), to)
}

func cmdReceive(cfg *config.Config, args []string) {
	if len(args) == 0 {
		fatal("Usage: hivecash-cli receive <token | fragment...>")
	}

	token := args[0]
	if strings.HasPrefix(token, fragment.Scheme) {
		dec := fragment.NewDecoder()
		for _, part := range args {
			if _, err := dec.Receive(part); err != nil {
				fatal("read fragment: %v", err)
			}
		}
		if !dec.Complete() {
			got, total := dec.Progress()
			fatal("incomplete token: %d/%d fragments", got, total)
		}
		payload, err := dec.Result()
		if err != nil {
			fatal("assemble token: %v", err)
		}
		token = string(payload)
	}

	w, db := openWallet(cfg)
	defer db.Close()

	added, err := w.ReceiveOffline(token)
	if err != nil {
		fatal("receive: %v", err)
	}
	if !added {
		fmt.Println("Token already held; nothing to do.")
		return
	}
	fmt.Println("Token stored. Run 'hivecash-cli sync' to redeem it.")
}

func cmdMint(cfg *config.Config, args []string) {
	var amountStr string
	showQR := false
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--amount" && i+1 < len(args):
			i++
			amountStr = args[i]
		case args[i] == "--qr":
			showQR = true
		default:
			fatal("Usage: hivecash-cli mint --amount <HBD> [--qr]")
		}
	}
	if amountStr == "" {
		fatal("Usage: hivecash-cli mint --amount <HBD> [--qr]")
	}
	amount, err := wallet.ParseHBD(amountStr)
	if err != nil {
		fatal("parse amount: %v", err)
	}

	w, db := openWallet(cfg)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mint.Timeout)
	defer cancel()

	res, err := w.RequestMint(ctx, amount)
	if err != nil {
		fatal("request mint: %v", err)
	}

	fmt.Printf("Deposit %s HBD with memo %q\n", wallet.FormatHBD(amount), res.Memo)
	if res.DepositURI != "" {
		fmt.Printf("Deposit URI: %s\n", res.DepositURI)
		if showQR {
			printQR(res.DepositURI)
		}
	}
	fmt.Println("Run 'hivecash-cli sync' after the deposit confirms.")
}

func cmdReset(cfg *config.Config) {
	store, db := openStore(cfg)
	defer db.Close()

	confirm, err := readLine("This erases ALL local wallet state including the stored phrase.\nType 'erase' to confirm: ")
	if err != nil {
		fatal("read confirmation: %v", err)
	}
	if confirm != "erase" {
		fmt.Println("Aborted.")
		return
	}
	if err := store.Reset(); err != nil {
		fatal("reset: %v", err)
	}
	fmt.Println("Wallet state erased.")
}

func printQR(data string) {
	q, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		fmt.Fprintf(os.Stderr, "qr: %v\n", err)
		return
	}
	fmt.Println(q.ToSmallString(false))
}
