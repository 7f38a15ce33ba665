package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/viewsync/internal/config"
)

// ConfigSummary is the effective configuration printed on success.
type ConfigSummary struct {
	Valid          bool   `json:"valid"`
	Listen         string `json:"listen"`
	Path           string `json:"path"`
	PollInterval   string `json:"poll_interval"`
	UpdateTimeout  string `json:"update_timeout"`
	CommandTimeout string `json:"command_timeout"`
	SendBuffer     int    `json:"send_buffer"`
	OutputDir      string `json:"output_dir"`
	Journal        string `json:"journal,omitempty"`
	Document       string `json:"document,omitempty"`
}

// NewValidateConfigCommand creates the validate-config command.
func NewValidateConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config <file>",
		Short: "Check a serve config file",
		Long: `Load a serve config file over the defaults and validate it against
the config schema without starting the server.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateConfig(rootOpts, args[0], cmd)
		},
	}
}

func runValidateConfig(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	out.VerboseLog("Validating %s", path)

	cfg, err := config.Load(path)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			if ferr := out.Error(ErrCodeConfig, "config does not match schema", verr.Details); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitFailure, "invalid config", err)
		}
		if ferr := out.Error(ErrCodeConfig, err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "cannot load config", err)
	}

	summary := ConfigSummary{
		Valid:          true,
		Listen:         cfg.Listen,
		Path:           cfg.Path,
		PollInterval:   cfg.PollInterval.String(),
		UpdateTimeout:  cfg.UpdateTimeout.String(),
		CommandTimeout: cfg.CommandTimeout.String(),
		SendBuffer:     cfg.SendBuffer,
		OutputDir:      cfg.OutputDir,
		Journal:        cfg.Journal,
		Document:       cfg.Document,
	}
	if out.JSON() {
		return out.Success(summary)
	}
	out.Printf("✓ %s is valid\n", path)
	out.Printf("  listen:  %s%s\n", summary.Listen, summary.Path)
	out.Printf("  timeouts: update %s, command %s, poll %s\n", summary.UpdateTimeout, summary.CommandTimeout, summary.PollInterval)
	if summary.Journal != "" {
		out.Printf("  journal: %s\n", summary.Journal)
	}
	return nil
}
