package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"pricebook/internal/calculator"
	"pricebook/internal/config"
	"pricebook/internal/exporter"
	"pricebook/internal/importer"
	"pricebook/internal/quote"
	"pricebook/internal/server"
	"pricebook/internal/store"
)

var (
	configPath string
	dataDir    string
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pricebook",
		Short:         "Price list ingestion and quotation pricing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径 (默认: 可执行文件同目录 config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "数据目录 (覆盖配置文件)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "以 JSON 输出")

	rootCmd.AddCommand(serveCmd(), ingestCmd(), priceCmd(), quoteCmd(), modelsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig() (*config.AppConfig, config.LoadConfigInfo, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, info, err := config.LoadConfigFrom(path)
	if err != nil {
		return nil, info, fmt.Errorf("加载配置失败: %w", err)
	}
	if dataDir != "" {
		cfg.Data.DataDir = dataDir
	}
	return cfg, info, nil
}

func openStore(cfg *config.AppConfig) (*store.Versioned, error) {
	if _, err := config.EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	return store.OpenVersioned(config.DBPath(cfg))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCmd() *cobra.Command {
	var (
		port    int
		devMode bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, info, err := loadConfig()
			if err != nil {
				return err
			}
			// config.toml 中显式配置的端口优先
			if port > 0 && !info.PortSpecified {
				cfg.Server.Port = port
			}
			if devMode {
				cfg.Server.DevMode = true
			}

			srv, err := server.NewServer(cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			go func() {
				fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
				if err := srv.Run(addr); err != nil {
					log.Fatalf("服务启动失败: %v", err)
				}
			}()
			fmt.Println("按 Ctrl+C 停止服务...")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			fmt.Println("\n正在关闭服务...")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "开发模式")
	return cmd
}

func ingestCmd() *cobra.Command {
	var headerSheet string
	cmd := &cobra.Command{
		Use:   "ingest <price-list.xlsx>",
		Short: "导入价格表工作簿，替换当前价格库",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			coordinator := importer.NewCoordinator(st).
				WithHeaderSheet(cfg.Import.HeaderSheet, cfg.Import.HeaderSearchWindow)
			report, err := coordinator.Ingest(cmd.Context(), importer.IngestOptions{
				FilePath:    args[0],
				HeaderSheet: headerSheet,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(report)
			}

			fmt.Printf("导入完成: %s\n", report.Filename)
			fmt.Printf("  价格表: %d (检测到 %d)\n", report.TablesWritten, report.TablesDetected)
			fmt.Printf("  型号:   %d\n", report.ProductsWritten)
			fmt.Printf("  单元格: %d, 乘数: %d, 其他价格: %d\n", report.CellsWritten, report.MultipliersWritten, report.OtherCellsWritten)
			for _, w := range report.Warnings {
				fmt.Printf("  [%s] %s R%dC%d: %s\n", w.Kind, w.Sheet, w.Row, w.Col, w.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&headerSheet, "header-sheet", "", "Header 表名称")
	return cmd
}

func priceCmd() *cobra.Command {
	var req calculator.Request
	cmd := &cobra.Command{
		Use:   "price <model> <width> [height]",
		Short: "计算单个型号的报价",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			req.Model = args[0]
			if req.Width, err = strconv.ParseFloat(args[1], 64); err != nil {
				return fmt.Errorf("invalid width %q", args[1])
			}
			if len(args) == 3 {
				if req.Height, err = strconv.ParseFloat(args[2], 64); err != nil {
					return fmt.Errorf("invalid height %q", args[2])
				}
			}

			b, err := calculator.NewCalculator(st, cfg.Units.MillimetersPerInch).Price(req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(b)
			}
			printBreakdown(b)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Unit, "unit", "inches", "尺寸单位 (in/mm/cm/m/ft)")
	cmd.Flags().StringVar(&req.Finish, "finish", "", "表面处理")
	cmd.Flags().BoolVar(&req.WithDamper, "damper", false, "带阻尼价格")
	cmd.Flags().IntVar(&req.Quantity, "qty", 1, "数量")
	cmd.Flags().Float64Var(&req.DiscountPct, "discount", 0, "折扣百分比")
	cmd.Flags().Float64Var(&req.SpecialColorMultiplier, "special", 0, "Special Color 乘数")
	cmd.Flags().BoolVar(&req.Insulated, "ins", false, "加保温层")
	cmd.Flags().StringVar(&req.Filter, "filter", "", "加过滤网 (型号名包含该名称的产品)")
	return cmd
}

func printBreakdown(b *calculator.PriceBreakdown) {
	fmt.Printf("%s (table %d)\n", b.Model, b.TableID)
	if b.RowLabel != "" {
		fmt.Printf("  行/列:    %s / %s\n", b.RowLabel, b.ColumnLabel)
	} else {
		fmt.Printf("  尺寸:     %g x %g in -> %g x %g\n", b.RequestedWidth, b.RequestedHeight, b.Width, b.Height)
	}
	if b.WidthExceeded || b.HeightExceeded {
		fmt.Printf("  超限乘数: %g\n", b.Extrapolation)
	}
	fmt.Printf("  TB:       %g\n", b.TB)
	fmt.Printf("  BP:       %g\n", b.BP)
	if b.MWD != nil {
		fmt.Printf("  WD/MWD:   %g / %g\n", *b.WD, *b.MWD)
	}
	fmt.Printf("  表面处理: %s x%g\n", b.Finish, b.FinishMultiplier)
	if b.FilterModel != "" {
		fmt.Printf("  过滤网:   %s +%g\n", b.FilterModel, b.FilterPrice)
	}
	if b.Insulated {
		fmt.Printf("  保温层:   +%g\n", b.InsulationPrice)
	}
	fmt.Printf("  单价:     %s\n", quote.Money(b.UnitPrice).StringFixed(2))
	fmt.Printf("  数量:     %d, 折扣: %g%%\n", b.Quantity, b.DiscountPct)
	fmt.Printf("  合计:     %s\n", quote.Money(b.Final).StringFixed(2))
}

func quoteCmd() *cobra.Command {
	var (
		output string
		sheet  string
	)
	cmd := &cobra.Command{
		Use:   "quote <import.xlsx>",
		Short: "批量计价报价工作簿",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()
			rows, err := quote.ReadWorkbookRows(in, sheet)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			calc := calculator.NewCalculator(st, cfg.Units.MillimetersPerInch)
			result, runErr := quote.NewRunner(calc, cfg.Import.QuoteHeaderWindow).Run(ctx, rows)
			if result == nil {
				return runErr
			}

			if output == "" {
				base := strings.TrimSuffix(args[0], filepath.Ext(args[0]))
				output = base + "-priced.xlsx"
			}
			f, err := exporter.NewExporter(cfg.Excel.QuoteTemplatePath).Export(result, exporter.ExportOptions{})
			if err != nil {
				return err
			}
			defer f.Close()
			if err := f.SaveAs(output); err != nil {
				return fmt.Errorf("写入报价单失败: %w", err)
			}

			if jsonOutput {
				if err := printJSON(result); err != nil {
					return err
				}
			} else {
				fmt.Printf("已计价 %d 行, 失败 %d 行, 合计 %s\n", result.Priced, len(result.Errors), result.Total().StringFixed(2))
				for _, e := range result.Errors {
					fmt.Printf("  %v\n", e)
				}
				fmt.Printf("报价单: %s\n", output)
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "输出文件 (默认: <输入>-priced.xlsx)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "报价 Sheet (默认: 活动 Sheet)")
	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "列出价格库中的型号",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			products, err := st.Products()
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(products)
			}
			for _, p := range products {
				fmt.Printf("%-24s table %-4d %s\n", p.Model, p.TableID, p.SheetName)
			}
			return nil
		},
	}
}
