package es

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v9"
)

type Config struct {
	URL      string `envconfig:"URL"`
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`
	Index    string `envconfig:"INDEX" default:"products"`
}

func (c Config) Enabled() bool { return c.URL != "" }

func NewClient(cfg Config, log *slog.Logger) (*elasticsearch.Client, error) {
	log.Info("connecting to elasticsearch", "url", cfg.URL, "user", cfg.User)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error: %s: %s", res.Status(), body)
	}

	log.Info("connected to elasticsearch")
	return client, nil
}
