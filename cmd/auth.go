package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytcurator/internal/shared"
)

// AuthLogin parses the cURL command stored at path and saves it as the credential bundle.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to a cURL file", shared.ErrMissingArgument)
	}

	bundle, err := shared.ParseCurlFile(path)
	if err != nil {
		return err
	}
	return r.saveBundle(bundle, r.headersPath())
}

// AuthStatus reports whether the catalog proxy is reachable and a valid credential bundle is saved.
//
// An unreachable proxy is an error; missing credentials are only reported, since browsing works without them.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	if hc, ok := r.youtube().(healthChecker); ok {
		if err := hc.Health(ctx); err != nil {
			return fmt.Errorf("%w: catalog proxy: %v", shared.ErrServiceUnavailable, err)
		}
		r.writePlain("✓ Catalog proxy is healthy (%s)\n", r.config.YouTube.ProxyURL)
	}

	path := r.headersPath()
	bundle, err := shared.LoadCredentialBundle(path)
	if err != nil {
		r.logger.Debug("credential bundle unusable", "path", path, "error", err)
		r.writePlain("Authentication: ✗ %v\n", err)
		return r.writePlain("Run 'ytcurator setup youtube' to enable playlist creation.\n")
	}

	r.writePlain("Authentication: ✓ Credentials saved at %s\n", path)
	return r.writePlain("Headers: %d\n", len(bundle.Headers))
}
