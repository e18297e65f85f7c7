package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// options 全局参数
type options struct {
	cfgFile  string
	logLevel string
	v        *viper.Viper
	logger   *logrus.Logger
}

// NewRootCmd 创建 biostats 根命令
func NewRootCmd() *cobra.Command {
	opts := &options{v: viper.New(), logger: logrus.New()}

	rootCmd := &cobra.Command{
		Use:   "biostats",
		Short: "BigBio 数据集 token 长度与元数据统计",
		Long: `biostats 离线统计 BigBio 数据集的 token 长度，并维护统计面板使用的数据集目录。

示例:
  biostats stats --schema bigbio_qa --split train=train.jsonl --split test=test.jsonl
  biostats stats --schema bigbio_kb --split train=train.jsonl --column total_token_length
  biostats import --manifest catalog.yaml`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "配置文件 (默认 ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "日志级别 (debug, info, warn, error)")
	_ = opts.v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newStatsCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))
	return rootCmd
}

// Execute 执行根命令
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		return err
	}
	return nil
}

// init 读取配置文件和环境变量，配置日志
func (o *options) init(stderr io.Writer) error {
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		o.v.AddConfigPath("./config")
		o.v.AddConfigPath(".")
		o.v.SetConfigName("config")
		o.v.SetConfigType("yaml")
	}

	o.v.SetEnvPrefix("biostats")
	o.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	o.v.AutomaticEnv()

	if err := o.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || o.cfgFile != "" {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	o.logger.SetOutput(stderr)
	o.logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	level, err := logrus.ParseLevel(o.v.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("无效的日志级别: %w", err)
	}
	o.logger.SetLevel(level)
	return nil
}
