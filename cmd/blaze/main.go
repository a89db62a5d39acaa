// Command blaze is the CLI front end for the search engine core: serve it
// over HTTP, index a directory, run a one-off query, or trigger a reindex.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nexus-search/blaze"
	"github.com/nexus-search/blaze/httpapi"
	"github.com/nexus-search/blaze/ingest"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blaze",
		Short: "Embeddable full-text search engine",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	root.AddCommand(serveCmd(), indexCmd(), searchCmd(), reindexCmd())
	return root
}

func loadConfig() (blaze.IndexConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BLAZE")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return blaze.IndexConfig{}, err
		}
	}

	v.SetDefault("name", "default")
	v.SetDefault("version", 1)
	v.SetDefault("fields", []string{"title", "content"})
	v.SetDefault("storage.type", "memory")

	cfg := blaze.IndexConfig{
		Name:    v.GetString("name"),
		Version: v.GetInt("version"),
		Fields:  v.GetStringSlice("fields"),
		Storage: blaze.StorageConfig{Type: v.GetString("storage.type")},
		Search: blaze.SearchConfig{
			UseBM25Signal: v.GetBool("search.useBM25Signal"),
			BM25Weight:    v.GetFloat64("search.bm25Weight"),
		},
	}
	return cfg, nil
}

func newManager(cfg blaze.IndexConfig) (*blaze.IndexManager, error) {
	var store blaze.SnapshotStore
	if cfg.Storage.Type == "indexeddb" {
		path := viper.GetString("storage.path")
		if path == "" {
			path = "blaze.db"
		}
		boltStore, err := blaze.NewBoltStore(path)
		if err != nil {
			return nil, err
		}
		store = boltStore
	} else {
		store = blaze.NewMemoryStore()
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	return blaze.NewIndexManager(cfg, store, logger)
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search engine over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			manager, err := newManager(cfg)
			if err != nil {
				return err
			}
			server := httpapi.New(manager, slog.Default())
			fmt.Fprintf(os.Stdout, "listening on %s\n", addr)
			return http.ListenAndServe(addr, server)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func indexCmd() *cobra.Command {
	var directory string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index a directory of documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			manager, err := newManager(cfg)
			if err != nil {
				return err
			}
			docs, err := ingest.Directory(directory)
			if err != nil {
				return err
			}
			added, err := manager.AddDocuments(docs)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "indexed %d documents\n", added)
			return nil
		},
	}
	cmd.Flags().StringVar(&directory, "directory", ".", "directory to index")
	return cmd
}

func searchCmd() *cobra.Command {
	var query string
	var fuzzy bool
	var maxResults int
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a one-off query against the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			manager, err := newManager(cfg)
			if err != nil {
				return err
			}
			results, err := manager.Search(context.Background(), query, blaze.SearchOptions{
				Fuzzy:      fuzzy,
				MaxResults: maxResults,
			})
			if err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(results)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "query string")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "enable fuzzy matching")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "cap on returned results, 0 for unbounded")
	return cmd
}

func reindexCmd() *cobra.Command {
	var directory string
	var snapshotKey string
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Clear and rebuild the index from a directory, optionally snapshotting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			manager, err := newManager(cfg)
			if err != nil {
				return err
			}
			manager.Clear()
			docs, err := ingest.Directory(directory)
			if err != nil {
				return err
			}
			added, err := manager.AddDocuments(docs)
			if err != nil {
				return err
			}
			if snapshotKey != "" {
				if err := manager.Snapshot(context.Background(), snapshotKey); err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stdout, "reindexed %d documents\n", added)
			return nil
		},
	}
	cmd.Flags().StringVar(&directory, "directory", ".", "directory to index")
	cmd.Flags().StringVar(&snapshotKey, "snapshot-key", "", "if set, snapshot the index under this key after reindexing")
	return cmd
}
