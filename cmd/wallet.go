package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"divvy/pkg/activity"
	"divvy/pkg/signer"
	"divvy/pkg/wallet"
)

var (
	loginAccount    string
	loginPrivateKey string
	walletAccount   string
	walletPublicKey string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an account key",
	Long: `Store the key of an account in the credentials directory and make it the
active account. ed25519 keys use the NEAR format (ed25519:<base58>);
erc191 keys are hex encoded secp256k1 keys.

Examples:
  divvy login --account alice.near --private-key ed25519:3D4...
  DIVVY_SIGNING_STANDARD=erc191 divvy login --account 0xabc... --private-key 0x...`,
	Args: cobra.NoArgs,
	Run:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of the active account",
	Args:  cobra.NoArgs,
	Run:   runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the active account",
	Args:  cobra.NoArgs,
	Run:   runWhoami,
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Query and manage the active account",
	Long: `Read balances and keys of the active account (or --account) and register
its key with the intents contract.

Examples:
  divvy wallet balance
  divvy wallet keys --account bob.near
  divvy wallet token-balance nep141:wrap.near
  divvy wallet has-key
  divvy wallet register-key`,
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the NEAR balance",
	Args:  cobra.NoArgs,
	Run:   runWalletBalance,
}

var walletKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List access keys",
	Args:  cobra.NoArgs,
	Run:   runWalletKeys,
}

var walletTokenBalanceCmd = &cobra.Command{
	Use:   "token-balance <token-id>",
	Short: "Show the intents contract balance of a token",
	Args:  cobra.ExactArgs(1),
	Run:   runWalletTokenBalance,
}

var walletHasKeyCmd = &cobra.Command{
	Use:   "has-key",
	Short: "Check whether the intents contract knows a public key",
	Args:  cobra.NoArgs,
	Run:   runWalletHasKey,
}

var walletRegisterKeyCmd = &cobra.Command{
	Use:   "register-key",
	Short: "Register a public key with the intents contract",
	Args:  cobra.NoArgs,
	Run:   runWalletRegisterKey,
}

var walletTxCmd = &cobra.Command{
	Use:   "tx <tx-hash>",
	Short: "Show the result of a transaction sent by the active account",
	Args:  cobra.ExactArgs(1),
	Run:   runWalletTx,
}

var walletNewKeyCmd = &cobra.Command{
	Use:   "new-key",
	Short: "Generate a new ed25519 key pair",
	Long: `Generate a new ed25519 key pair without storing it. Register the public
key from a signed-in account, then sign in with the private key.

Examples:
  divvy wallet new-key
  divvy wallet register-key --public-key ed25519:8hSH...
  divvy login --account alice.near --private-key ed25519:3D4...`,
	Args: cobra.NoArgs,
	Run:  runWalletNewKey,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, walletCmd)
	walletCmd.AddCommand(walletBalanceCmd, walletKeysCmd, walletTokenBalanceCmd,
		walletHasKeyCmd, walletRegisterKeyCmd, walletTxCmd, walletNewKeyCmd)

	loginCmd.Flags().StringVar(&loginAccount, "account", "", "Account id (required)")
	loginCmd.Flags().StringVar(&loginPrivateKey, "private-key", "", "Private key (required)")
	_ = loginCmd.MarkFlagRequired("account")
	_ = loginCmd.MarkFlagRequired("private-key")

	walletCmd.PersistentFlags().StringVar(&walletAccount, "account", "", "Account to query (default: active account)")
	walletHasKeyCmd.Flags().StringVar(&walletPublicKey, "public-key", "", "Public key (default: the active account's key)")
	walletRegisterKeyCmd.Flags().StringVar(&walletPublicKey, "public-key", "", "Public key (default: the active account's key)")
}

func runLogin(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	exitOnError(a.session.SignIn(ctx, loginAccount, loginPrivateKey))

	if jsonOutput(cmd) {
		printJSON(sessionInfo(a.session))
		return
	}
	printSuccess(fmt.Sprintf("✓ Signed in as %s", loginAccount))
}

func runLogout(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	previous := a.session.AccountID()
	exitOnError(a.session.SignOut(ctx))

	if jsonOutput(cmd) {
		printJSON(sessionInfo(a.session))
		return
	}
	if previous == "" {
		color.Yellow("\nNo account was signed in.\n")
		return
	}
	printSuccess(fmt.Sprintf("✓ Signed out of %s", previous))
}

func runWhoami(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	exitOnError(err)

	info := sessionInfo(a.session)
	if jsonOutput(cmd) {
		printJSON(info)
		return
	}

	if a.session.State() == wallet.SignedOut {
		color.Yellow("\nNot signed in.\n")
		fmt.Println("Sign in with:")
		color.Cyan("  divvy login --account <account-id> --private-key <key>\n")
		return
	}

	fmt.Printf("\n  Account:     %s\n", color.CyanString(info["account_id"]))
	fmt.Printf("  Public Key:  %s\n", color.HiBlackString(info["public_key"]))
	fmt.Printf("  Standard:    %s\n", a.cfg.SigningStandard)
	fmt.Printf("  Network:     %s\n\n", a.cfg.Network)
}

func sessionInfo(s *wallet.Session) map[string]string {
	info := map[string]string{
		"state":      s.State().String(),
		"account_id": s.AccountID(),
	}
	if key, err := s.PublicKey(); err == nil {
		info["public_key"] = key
	}
	return info
}

func runWalletBalance(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	balance, err := a.session.GetBalance(ctx, walletAccount)
	exitOnError(err)

	if jsonOutput(cmd) {
		printJSON(map[string]string{"account_id": accountOrActive(a), "balance": balance})
		return
	}
	fmt.Printf("\n  %s  %s NEAR\n\n", color.CyanString(accountOrActive(a)), color.YellowString(balance))
}

func runWalletKeys(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	keys, err := a.session.GetAccessKeys(ctx, walletAccount)
	exitOnError(err)

	if jsonOutput(cmd) {
		printJSON(keys)
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                          ACCESS KEYS: %s", accountOrActive(a))
	fmt.Println(strings.Repeat("=", 90))
	for _, key := range keys {
		permission, _ := json.Marshal(key.AccessKey.Permission)
		fmt.Printf("\n  %s\n", color.CyanString(key.PublicKey))
		fmt.Printf("    Nonce:       %d\n", key.AccessKey.Nonce)
		fmt.Printf("    Permission:  %s\n", color.HiBlackString(truncateString(string(permission), 70)))
	}
	fmt.Printf("\nTotal: %d keys\n\n", len(keys))
}

func runWalletTokenBalance(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	balance, err := a.session.GetTokenBalance(ctx, walletAccount, args[0])
	exitOnError(err)

	if jsonOutput(cmd) {
		printJSON(map[string]string{"account_id": accountOrActive(a), "token_id": args[0], "balance": balance})
		return
	}
	fmt.Printf("\n  %s  %s %s\n\n", color.CyanString(accountOrActive(a)), color.YellowString(balance), args[0])
}

func runWalletHasKey(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	publicKey := walletPublicKey
	if publicKey == "" {
		publicKey, err = a.session.PublicKey()
		exitOnError(err)
	}

	has, err := a.session.HasPublicKey(ctx, walletAccount, publicKey)
	exitOnError(err)

	if jsonOutput(cmd) {
		printJSON(map[string]interface{}{"account_id": accountOrActive(a), "public_key": publicKey, "registered": has})
		return
	}
	if has {
		color.Green("\n✓ %s is registered for %s\n", publicKey, accountOrActive(a))
		return
	}
	color.Yellow("\n%s is not registered for %s\n", publicKey, accountOrActive(a))
	color.Cyan("  divvy wallet register-key\n")
}

func runWalletRegisterKey(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	outcome, err := a.session.RegisterPublicKey(ctx, walletPublicKey)

	response, _ := json.Marshal(outcome)
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		response = nil
	}
	if _, recErr := a.journal.Record(activity.ActionRegister, a.session.AccountID(), "", response, errMsg); recErr != nil {
		color.Yellow("Warning: failed to record activity: %v", recErr)
	}
	exitOnError(err)

	if jsonOutput(cmd) {
		printJSON(outcome)
		return
	}
	printSuccess("✓ Public key registered")
}

func runWalletTx(cmd *cobra.Command, args []string) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	exitOnError(err)

	result, err := a.session.GetTransactionResult(ctx, args[0])
	exitOnError(err)

	printJSON(result)
}

func runWalletNewKey(cmd *cobra.Command, args []string) {
	kp, err := signer.GenerateKeyPair()
	exitOnError(err)

	if jsonOutput(cmd) {
		printJSON(map[string]string{"public_key": kp.PublicKey(), "private_key": kp.SecretKey()})
		return
	}

	fmt.Printf("\n  Public Key:   %s\n", color.CyanString(kp.PublicKey()))
	fmt.Printf("  Private Key:  %s\n\n", color.YellowString(kp.SecretKey()))
	color.HiBlack("Keep the private key safe. It is not stored.\n")
}

func accountOrActive(a *app) string {
	if walletAccount != "" {
		return walletAccount
	}
	return a.session.AccountID()
}
