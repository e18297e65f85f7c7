package cli

import (
	"fmt"
	"io"
	"os"

	"biostats-go/internal/config"
	"biostats-go/internal/models"
	"biostats-go/internal/repository"
	"biostats-go/internal/service"

	"github.com/spf13/cobra"
)

func newImportCmd(opts *options) *cobra.Command {
	var manifest string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "导入YAML目录清单到数据库",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath != "" {
				opts.v.Set("database.path", dbPath)
			}
			return runImport(cmd.OutOrStdout(), opts, manifest)
		},
	}

	cmd.Flags().StringVar(&manifest, "manifest", "", "目录清单文件 (YAML)")
	cmd.Flags().StringVar(&dbPath, "db", "", "数据库路径，覆盖配置文件")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func runImport(out io.Writer, opts *options, manifest string) error {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return fmt.Errorf("读取清单失败: %w", err)
	}

	cfg, err := config.LoadOffline(opts.v)
	if err != nil {
		return err
	}

	db, err := models.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("打开数据库失败: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	repo := repository.NewCatalogRepository(db)
	catalog := service.NewCatalogService(repo, cfg.Catalog, nil, opts.logger)
	summary, err := catalog.ImportManifest(data)
	if err != nil {
		return err
	}
	total, err := repo.CountConfigs()
	if err != nil {
		return fmt.Errorf("统计配置数失败: %w", err)
	}

	fmt.Fprintf(out, "imported %d datasets, %d configs, %d splits\n", len(summary.Datasets), summary.Configs, summary.Splits)
	for _, entry := range summary.Entries {
		fmt.Fprintf(out, "  %s/%s: %v\n", entry.Dataset, entry.Config, entry.Splits)
	}
	fmt.Fprintf(out, "catalog now holds %d configs\n", total)
	return nil
}
