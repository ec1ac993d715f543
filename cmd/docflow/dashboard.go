package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/docflow/internal/activity"
	"github.com/nhle/docflow/internal/app"
	"github.com/nhle/docflow/internal/client"
	"github.com/nhle/docflow/internal/credential"
	"github.com/nhle/docflow/internal/feed"
	"github.com/nhle/docflow/internal/logging"
	"github.com/nhle/docflow/internal/model"
)

func dashboardCmd() *cobra.Command {
	var (
		tenant string
		lang   string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the terminal dashboard",
		Long: `Open the live operator dashboard.

The access token is read from DOCFLOW_TOKEN or from the keyring entry
written by "docflow login".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if lang == "" {
				lang = cfg.UI.Lang
			}

			creds, err := credential.Open(model.ConfigDir())
			if err != nil {
				return err
			}
			token, err := creds.ResolveToken()
			if err != nil {
				return err
			}

			// The terminal belongs to the UI; logs go to a file.
			if err := os.MkdirAll(model.ConfigDir(), 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			logPath := filepath.Join(model.ConfigDir(), "docflow.log")
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer logFile.Close()
			log := logging.NewWithWriter(logFile, cfg.Log)

			api := client.New(cfg.API.BaseURL, token)
			f := feed.New(feed.Config{
				URL:           cfg.API.WSURL,
				Token:         token,
				MaxActivities: cfg.Feed.MaxActivities,
				PollInterval:  cfg.Feed.PollInterval,
				InitialLimit:  cfg.Feed.InitialLimit,
				Dialer:        feed.WSDialer{},
				Fetcher:       feed.NewHTTPFetcher(api),
				Logger:        log,
			})
			defer f.Close()

			root := app.New(app.Options{
				Feed:   f,
				API:    api,
				Lang:   activity.ParseLang(lang),
				Tenant: tenant,
				Logger: log,
			})

			p := tea.NewProgram(root, tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running dashboard: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant label shown in the header")
	cmd.Flags().StringVar(&lang, "lang", "", "interface language, fi or en (default from config)")
	return cmd
}
