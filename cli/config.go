package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved process configuration, built once from flags and
// PG_EXPORTER_* environment variables. Flags win over the environment.
type Config struct {
	ListenAddress    string
	DSN              string
	ExcludeDatabases []string
	LogLevel         string
	LogPath          string
	ScrapeTimeout    time.Duration
}

func LoadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PG_EXPORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	return &Config{
		ListenAddress:    v.GetString("web.listen-address"),
		DSN:              v.GetString("dsn"),
		ExcludeDatabases: splitCommaEntries(v.GetStringSlice("exclude-databases")),
		LogLevel:         v.GetString("log.level"),
		LogPath:          v.GetString("log.path"),
		ScrapeTimeout:    v.GetDuration("scrape.timeout"),
	}, nil
}

// splitCommaEntries expands comma-joined entries so the flag can be repeated
// or passed as one comma-separated value, matching either CLI habit.
func splitCommaEntries(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		for _, part := range strings.Split(entry, ",") {
			out = append(out, part)
		}
	}
	return out
}
