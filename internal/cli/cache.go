package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/radialtree/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout and artifact cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached layouts and artifacts",
		Long: `Clear all cached layouts and artifacts.

With --redis, the entries under the radialtree prefix are removed from the
Redis server instead of the local cache directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.RedisAddr != "" {
				return c.clearRedis(cmd.Context())
			}
			return c.clearFiles()
		},
	}
}

func (c *CLI) clearFiles() error {
	dir, err := cacheDir()
	if err != nil {
		return fmt.Errorf("get cache dir: %w", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printInfo("Cache is empty")
		return nil
	}

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return err
	}
	count, err := fc.Clear()
	if err != nil {
		return fmt.Errorf("clear %s: %w", dir, err)
	}
	printSuccess("Cleared %d cached entries", count)
	printDetail("Directory: %s", dir)
	return nil
}

func (c *CLI) clearRedis(ctx context.Context) error {
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.RedisAddr})
	if err != nil {
		return err
	}
	defer rc.Close()

	count, err := rc.Clear(ctx)
	if err != nil {
		return fmt.Errorf("clear redis: %w", err)
	}
	printSuccess("Cleared %d cached entries", count)
	printDetail("Redis: %s", c.RedisAddr)
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		Long: `Print the cache location: the local cache directory, or the Redis address
and key prefix when --redis is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.RedisAddr != "" {
				fmt.Fprintf(c.out, "redis://%s/%s*\n", c.RedisAddr, cache.DefaultRedisPrefix)
				return nil
			}
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(c.out, dir)
			return nil
		},
	}
}
