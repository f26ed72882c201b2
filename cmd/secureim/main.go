// Package main provides the secureim command-line client.
//
// The login command runs the mutual-authentication handshake against a
// secureim server and reports the fingerprint of the agreed session key. With
// --chat it then relays input lines to other logged-in users until input ends.
// The keygen command writes a fresh RSA key pair in the format the client
// loads.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opd-ai/secureim/chat"
	"github.com/opd-ai/secureim/config"
	"github.com/opd-ai/secureim/crypto"
	"github.com/opd-ai/secureim/handshake"
	"github.com/opd-ai/secureim/keys"
	"github.com/opd-ai/secureim/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Exit codes, one per handshake failure kind.
const (
	exitOK = iota
	exitError
	exitServerUnresponsive
	exitMalformedMessage
	exitKeyTransport
	exitAuthenticationFailed
	exitChallengeMismatch
)

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch handshake.KindOf(err) {
	case nil:
		if err == nil {
			return exitOK
		}
		return exitError
	case handshake.ErrServerUnresponsive:
		return exitServerUnresponsive
	case handshake.ErrMalformedMessage:
		return exitMalformedMessage
	case handshake.ErrKeyTransport:
		return exitKeyTransport
	case handshake.ErrAuthenticationFailed:
		return exitAuthenticationFailed
	case handshake.ErrChallengeMismatch:
		return exitChallengeMismatch
	default:
		return exitError
	}
}

// app carries state shared by the subcommands.
type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "secureim",
		Short:         "Mutually authenticated login client for secureim servers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (YAML)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(a.loginCmd(), a.keygenCmd(), a.configCmd())
	return root
}

// load reads configuration and applies logging settings.
func (a *app) load() (*config.Config, error) {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ConfigureLogging(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) loginCmd() *cobra.Command {
	var (
		username string
		chatting bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and establish a session key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			return runLogin(cmd.Context(), cfg, username, chatting, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&username, "user", "u", "", "username (prompted when empty)")
	flags.BoolVar(&chatting, "chat", false, "relay chat lines after login until input ends")
	flags.String("host", "", "server host")
	flags.Int("port", 0, "server port")
	flags.String("private-key", "", "client private key file")
	flags.String("public-key", "", "client public key file")
	flags.String("server-key", "", "server public key file")
	_ = a.v.BindPFlag("server.host", flags.Lookup("host"))
	_ = a.v.BindPFlag("server.port", flags.Lookup("port"))
	_ = a.v.BindPFlag("keys.private", flags.Lookup("private-key"))
	_ = a.v.BindPFlag("keys.public", flags.Lookup("public-key"))
	_ = a.v.BindPFlag("keys.server_public", flags.Lookup("server-key"))

	return cmd
}

func runLogin(ctx context.Context, cfg *config.Config, username string, chatting bool, in io.Reader, out io.Writer) error {
	km, err := keys.Load(cfg.KeyPaths())
	if err != nil {
		return err
	}

	reader := bufio.NewReader(in)
	if username == "" {
		fmt.Fprint(out, "Username: ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		username = strings.TrimSpace(line)
	}

	password, err := readPassword(in, reader, out)
	if err != nil {
		return err
	}
	creds, err := handshake.NewCredentials(username, password)
	if err != nil {
		return err
	}
	defer creds.Wipe()

	tr, err := transport.DialUDP(cfg.Address())
	if err != nil {
		return err
	}
	defer tr.Close()

	client, err := handshake.NewClient(cfg.HandshakeConfig(), km, tr)
	if err != nil {
		return err
	}

	result, err := client.Login(ctx, creds)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(result.SessionKey)

	fmt.Fprintf(out, "Logged in as %s in %v\n", result.Username, result.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Session key fingerprint: %s\n", crypto.Fingerprint(result.SessionKey))
	if !chatting {
		return nil
	}

	relay, err := chat.NewRelay(tr, result.SessionKey, reader, out)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Chat ready; end input to leave.")
	return relay.Run(ctx)
}

// readPassword prompts without echo on a terminal and reads a line otherwise.
func readPassword(in io.Reader, reader *bufio.Reader, out io.Writer) ([]byte, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Password: ")
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		return password, err
	}

	line, err := reader.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	password := []byte(strings.TrimRight(string(line), "\r\n"))
	crypto.ZeroBytes(line)
	if len(password) == 0 {
		return nil, errors.New("empty password")
	}
	return password, nil
}

func (a *app) keygenCmd() *cobra.Command {
	var (
		dir  string
		bits int
	)

	cmd := &cobra.Command{
		Use:   "keygen NAME",
		Short: "Write NAME_priv.txt and NAME_pub.txt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.load(); err != nil {
				return err
			}
			paths, err := keys.WriteKeyPair(dir, args[0], bits)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s and %s\n", paths.Private, paths.Public)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "output directory")
	cmd.Flags().IntVarP(&bits, "bits", "b", crypto.DefaultRSABits, "RSA modulus size")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			return cfg.Encode(cmd.OutOrStdout())
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		logrus.WithError(err).Error("secureim failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	stop()
	os.Exit(exitCode(err))
}
