package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/edulab-ai/progresscluster/internal/config"
	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/store"
)

var (
	seedDBURL      string
	seedFile       string
	seedMigrations string
	seedMigrate    bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a corpus JSON file into the Postgres corpus tables",
	Long: `seed inserts tutoring sessions from a JSON file into the database so
the training pipeline can read them back with corpus.database_url.

The file is an array of sessions:
  [{"participant_id": "p1", "messages": [{"role": "user", "content": "..."}]}]`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedDBURL, "db", "", "database URL (overrides config)")
	seedCmd.Flags().StringVar(&seedFile, "file", "", "sessions JSON file (required)")
	seedCmd.Flags().StringVar(&seedMigrations, "migrations", config.MigrationsPath(), "migrations directory")
	seedCmd.Flags().BoolVar(&seedMigrate, "migrate", false, "apply migrations before seeding")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}

type seedSession struct {
	ParticipantID string `json:"participant_id"`
	Messages      []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	dbURL := seedDBURL
	if dbURL == "" {
		cfg, err := config.LoadTrainingConfig(cfgFile)
		if err != nil {
			return err
		}
		dbURL = cfg.Corpus.DatabaseURL
	}
	if dbURL == "" {
		return fmt.Errorf("no database configured: pass --db or set corpus.database_url")
	}

	data, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", seedFile, err)
	}
	var sessions []seedSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return fmt.Errorf("parsing %s: %w", seedFile, err)
	}
	if len(sessions) == 0 {
		return fmt.Errorf("%s contains no sessions", seedFile)
	}

	ctx := cmd.Context()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if seedMigrate {
		if err := applyMigrations(ctx, pool, seedMigrations); err != nil {
			return err
		}
	}

	conversations := store.NewConversationStore(pool)
	for i, s := range sessions {
		conv := &domain.Conversation{
			ID:            uuid.New(),
			ParticipantID: s.ParticipantID,
		}
		for idx, m := range s.Messages {
			conv.Messages = append(conv.Messages, domain.Message{
				Role:    domain.Role(m.Role),
				Content: m.Content,
				Index:   idx,
			})
		}
		if err := conversations.CreateSession(ctx, conv); err != nil {
			return fmt.Errorf("inserting session %d: %w", i, err)
		}

		stored, err := conversations.GetSession(ctx, conv.ID)
		if err != nil {
			return fmt.Errorf("verifying session %d: %w", i, err)
		}
		fmt.Printf("Seeded session %s (%s): %d messages\n",
			stored.ID, stored.ParticipantID, len(stored.Messages))
	}
	return nil
}

// applyMigrations runs every .sql file in the directory in name order.
// This is a seeding convenience, not a migration framework: files are
// expected to be idempotent (CREATE IF NOT EXISTS).
func applyMigrations(ctx context.Context, pool *pgxpool.Pool, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading migrations dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		sql, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		fmt.Printf("Applied %s\n", name)
	}
	return nil
}
