package main

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"auditimport/internal/adminweb"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the operator import form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			bind := strings.TrimSpace(bindFlag)
			if bind == "" {
				bind = cfg.Admin.Bind
			}
			if err := checkBindAuth(bind, cfg.Admin.Token); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			b, err := ctx.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			importer, err := ctx.newImporter(b)
			if err != nil {
				return err
			}

			srv, err := adminweb.NewServer(importer, cfg.LettersDir,
				adminweb.WithAuthorizer(adminweb.TokenAuthorizer{Token: cfg.Admin.Token}),
				adminweb.WithTokenSecret(cfg.Admin.CSRFSecret, cfg.TokenTTL()),
				adminweb.WithLockPath(cfg.LockPath()),
				adminweb.WithRateLimit(cfg.Admin.MaxRunsPerMinute, 1),
				adminweb.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context(), bind)
		},
	}
	cmd.Flags().StringVar(&bindFlag, "bind", "", "Listen address (default admin.bind)")
	return cmd
}

var errUnprotectedBind = errors.New("admin.token must be set to serve on a non-loopback address")

// checkBindAuth allows an empty token only on loopback addresses.
func checkBindAuth(bind, token string) error {
	if token != "" || isLoopbackBind(bind) {
		return nil
	}
	return fmt.Errorf("%w (bind %s); set admin.token or AUDITIMPORT_ADMIN_TOKEN", errUnprotectedBind, bind)
}

func isLoopbackBind(bind string) bool {
	host, _, err := net.SplitHostPort(bind)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
