package sqlstore

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// DSN converts a datasource url into the form the provider's driver
// expects. PostgreSQL and SQLite urls are used as is; mysql:// urls become
// go-sql-driver DSNs.
func DSN(provider, rawURL string) (string, error) {
	if DriverName(provider) != "mysql" || !strings.HasPrefix(rawURL, "mysql://") {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("sqlstore: invalid mysql url: %w", err)
	}
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = u.Host + ":3306"
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.ParseTime = true
	if params := u.Query(); len(params) > 0 {
		cfg.Params = map[string]string{}
		for k := range params {
			cfg.Params[k] = params.Get(k)
		}
	}
	return cfg.FormatDSN(), nil
}
