package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytcurator/internal/shared"
)

// SetupConfig writes the embedded example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set an API key in [credentials] or export GEMINI_API_KEY / OPENAI_API_KEY / ANTHROPIC_API_KEY\n")
	r.writePlain("2. Run 'ytcurator setup youtube --curl-file request.txt' to enable playlist creation\n")
	return nil
}

// SetupDatabase initializes the history database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}

// SetupYouTube saves a credential bundle parsed from a browser cURL command.
//
// Accepts the command inline (--curl) or from a file (--curl-file), never both.
func (r *Runner) SetupYouTube(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidInput)
	}

	var bundle *shared.CredentialBundle
	var err error
	if curlFile != "" {
		bundle, err = shared.ParseCurlFile(curlFile)
	} else {
		bundle, err = shared.ParseCurlCommand(curlCmd)
	}
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}

	output := cmd.String("output")
	if output == "" {
		output = r.headersPath()
	}
	return r.saveBundle(bundle, shared.ExpandHome(output))
}

func (r *Runner) saveBundle(bundle *shared.CredentialBundle, path string) error {
	if err := bundle.Save(path); err != nil {
		return err
	}

	r.logger.Info("credential bundle saved", "path", path, "headers", len(bundle.Headers))
	for _, w := range bundle.Warnings {
		r.logger.Warn(w)
	}

	r.writePlain("✓ YouTube Music authentication configured successfully\n")
	r.writePlain("Credentials saved to: %s\n", path)
	r.writePlain("Headers: %s\n", strings.Join(bundle.Keys(), ", "))
	for _, w := range bundle.Warnings {
		r.writePlain("Warning: %s\n", w)
	}
	if path != r.headersPath() {
		r.writePlainln("Set youtube.headers_path = %q in your config to use these credentials.", path)
	}
	return nil
}
