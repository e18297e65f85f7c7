package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"biostats-go/internal/schema"
	"biostats-go/internal/stats"
	"biostats-go/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type statsOptions struct {
	schemaTag string
	splits    []string
	column    string
	output    string
	policy    string
	bins      int
}

func newStatsCmd(opts *options) *cobra.Command {
	so := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "统计本地JSONL文件的token长度",
		Long: `按 schema 统计每条记录各文本字段的token数，输出token长度表。
指定 --column 时输出该列的直方图分箱结果以及每个划分的均值和标准差。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), cmd.OutOrStdout(), opts.logger, so)
		},
	}

	cmd.Flags().StringVar(&so.schemaTag, "schema", "", "BigBio schema 标签，例如 bigbio_qa")
	cmd.Flags().StringArrayVar(&so.splits, "split", nil, "划分文件，格式 name=path.jsonl，可重复")
	cmd.Flags().StringVar(&so.column, "column", "", "输出该列的直方图摘要")
	cmd.Flags().StringVarP(&so.output, "output", "o", "json", "输出格式 (json, csv)")
	cmd.Flags().StringVar(&so.policy, "passage-policy", stats.PassageLastWriteWins.String(), "重复段落类型的合并策略 (last, sum)")
	cmd.Flags().IntVar(&so.bins, "bins", 20, "直方图分箱数")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("split")
	return cmd
}

func runStats(ctx context.Context, out io.Writer, logger *logrus.Logger, so *statsOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sch, err := schema.Parse(so.schemaTag)
	if err != nil {
		return err
	}
	policy, err := stats.ParsePassagePolicy(so.policy)
	if err != nil {
		return err
	}
	if so.output != "json" && so.output != "csv" {
		return fmt.Errorf("不支持的输出格式: %s", so.output)
	}

	dataset, err := loadSplits(so.splits, logger)
	if err != nil {
		return err
	}

	table, err := stats.ParseTokenLength(ctx, dataset, sch,
		stats.WithPassagePolicy(policy),
		stats.WithProgress(&logProgress{logger: logger}),
	)
	if err != nil {
		return err
	}
	logger.WithField("rows", table.Len()).Info("token lengths complete")

	if so.column == "" {
		if so.output == "csv" {
			return utils.WriteCSV(out, table.Columns(), table.Maps())
		}
		return writeJSON(out, table)
	}

	hist, err := stats.DrawHistogram(table, so.column, stats.ChartOptions{Title: so.column, NBins: so.bins})
	if err != nil {
		return err
	}
	if so.output == "csv" {
		return writeHistogramCSV(out, hist)
	}
	return writeJSON(out, map[string]interface{}{
		"column": hist.Column,
		"edges":  hist.Edges,
		"splits": hist.Splits,
	})
}

// loadSplits 读取 name=path 形式的划分文件，保持参数顺序
func loadSplits(specs []string, logger *logrus.Logger) (stats.Dataset, error) {
	dataset := make(stats.Dataset, 0, len(specs))
	seen := make(map[string]bool)
	for _, spec := range specs {
		name, path, ok := strings.Cut(spec, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("划分参数格式应为 name=path: %s", spec)
		}
		if err := utils.ValidateVar("split", name, "split_name"); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("划分重复: %s", name)
		}
		seen[name] = true

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("打开划分文件失败: %w", err)
		}
		items, err := utils.ReadJSONLines(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		split := stats.Split{Name: name, Records: make([]stats.Record, len(items))}
		for i, item := range items {
			split.Records[i] = stats.Record(item)
		}
		logger.WithFields(logrus.Fields{"split": name, "records": len(items)}).Debug("划分已读取")
		dataset = append(dataset, split)
	}
	return dataset, nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeHistogramCSV 每个划分一行：count、mean、std 和每个分箱的概率
func writeHistogramCSV(out io.Writer, hist *stats.Histogram) error {
	headers := []string{stats.SplitColumn, "count", "mean", "std"}
	for i := 0; i+1 < len(hist.Edges); i++ {
		headers = append(headers, fmt.Sprintf("[%g,%g)", hist.Edges[i], hist.Edges[i+1]))
	}

	rows := make([]map[string]interface{}, 0, len(hist.Splits))
	for _, s := range hist.Splits {
		row := map[string]interface{}{
			stats.SplitColumn: s.Split,
			"count":           s.Count,
			"mean":            s.Mean,
			"std":             s.Std,
		}
		for i, p := range s.Probabilities {
			row[headers[4+i]] = p
		}
		rows = append(rows, row)
	}
	return utils.WriteCSV(out, headers, rows)
}

// logProgress 把聚合进度写到日志
type logProgress struct {
	logger *logrus.Logger
}

func (p *logProgress) Progress(split string, done, total int) {
	if done+1 == total {
		p.logger.WithFields(logrus.Fields{"split": split, "total": total}).Debug("划分统计完成")
	}
}

func (p *logProgress) SplitDone(string) {}
