package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/voicecal/internal/config"
	"github.com/teemow/voicecal/internal/google"
)

type authOptions struct {
	port    int
	save    bool
	timeout time.Duration
}

func newAuthCmd() *cobra.Command {
	var opts authOptions

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Mint a Google refresh token for the calendar",
		Long: `Run the OAuth consent flow once and print the refresh token.

The command starts a callback listener on 127.0.0.1, prints the Google
consent URL and waits for the browser to come back. Add
http://127.0.0.1:<port>/oauth2callback to the OAuth client's authorized
redirect URIs first.

Only GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required. With --save the
token is written to the per-user voicecal.env file as GOOGLE_REFRESH_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := readConfig(cmd, nil)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				opts.port = cfg.OAuthPort
			}
			return runAuth(cmd, cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.port, "port", config.DefaultOAuthPort, "Local callback port. Can also use GOOGLE_OAUTH_PORT env var.")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Store the refresh token in the per-user env file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "How long to wait for the browser")

	return cmd
}

func runAuth(cmd *cobra.Command, cfg config.Config, opts authOptions) error {
	if cfg.Credentials.ClientID == "" || cfg.Credentials.ClientSecret == "" {
		return errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(opts.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	redirectURL := "http://" + addr + google.CallbackPath
	flow := google.NewConsentFlow(cfg.Credentials, redirectURL, cfg.TokenURL, google.NewHTTPClient(cfg.HTTPTimeout))

	results := make(chan google.ConsentResult, 1)
	mux := http.NewServeMux()
	mux.Handle(google.CallbackPath, flow.CallbackHandler(results))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("callback server failed", "error", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Open this URL in your browser and grant calendar access:\n\n  %s\n\nWaiting for the callback on %s ...\n", flow.AuthCodeURL(), redirectURL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var res google.ConsentResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return errors.New("interrupted")
	case <-time.After(opts.timeout):
		return fmt.Errorf("no callback received within %s", opts.timeout)
	}
	if res.Err != nil {
		return res.Err
	}

	if opts.save {
		path, err := config.WriteUserEnv(map[string]string{"GOOGLE_REFRESH_TOKEN": res.Token.RefreshToken})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "\nRefresh token saved to %s\n", path)
		return nil
	}

	_, _ = fmt.Fprintf(out, "\nGOOGLE_REFRESH_TOKEN=%s\n", res.Token.RefreshToken)
	return nil
}
