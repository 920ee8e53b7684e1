package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Import ImportConfig `toml:"import"`
	Units  UnitsConfig  `toml:"units"`
	Excel  ExcelConfig  `toml:"excel"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
	DBFile  string `toml:"db_file"`
}

// ImportConfig 导入配置
type ImportConfig struct {
	HeaderSheet        string `toml:"header_sheet"`
	HeaderSearchWindow int    `toml:"header_search_window"`
	QuoteHeaderWindow  int    `toml:"quote_header_window"`
}

// UnitsConfig 单位换算配置
type UnitsConfig struct {
	MillimetersPerInch float64 `toml:"mm_per_inch"`
}

// ExcelConfig 报价单导出配置
type ExcelConfig struct {
	QuoteTemplatePath string `toml:"quote_template_path"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
			DBFile:  "pricebook.db",
		},
		Import: ImportConfig{
			HeaderSheet:        "Header",
			HeaderSearchWindow: 20,
			QuoteHeaderWindow:  20,
		},
		Units: UnitsConfig{
			MillimetersPerInch: 25,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func exeDirOrCwd() string {
	dir, err := GetExeDir()
	if err != nil {
		return "."
	}
	return dir
}

// DefaultConfigPath 可执行文件同目录下的 config.toml
func DefaultConfigPath() string {
	return filepath.Join(exeDirOrCwd(), "config.toml")
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadConfigFrom(DefaultConfigPath())
}

// LoadConfigFrom 从指定路径加载配置，文件不存在时使用默认配置。
// 之后依次应用 .env 与 PRICEBOOK_* 环境变量。
func LoadConfigFrom(configPath string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	// .env 不覆盖已存在的环境变量
	_ = godotenv.Load(filepath.Join(filepath.Dir(configPath), ".env"))
	if err := applyEnv(config, &info); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖
func applyEnv(config *AppConfig, info *LoadConfigInfo) error {
	if v := os.Getenv("PRICEBOOK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PRICEBOOK_PORT %q: %w", v, err)
		}
		config.Server.Port = port
		info.PortSpecified = true
	}
	if v := os.Getenv("PRICEBOOK_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("PRICEBOOK_DB_FILE"); v != "" {
		config.Data.DBFile = v
	}
	if v := os.Getenv("PRICEBOOK_MM_PER_INCH"); v != "" {
		mm, err := strconv.ParseFloat(v, 64)
		if err != nil || mm <= 0 {
			return fmt.Errorf("invalid PRICEBOOK_MM_PER_INCH %q", v)
		}
		config.Units.MillimetersPerInch = mm
	}
	if v := os.Getenv("PRICEBOOK_QUOTE_TEMPLATE_PATH"); v != "" {
		config.Excel.QuoteTemplatePath = v
	}
	return nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 保存配置到指定路径，path 为空时写入可执行文件同目录
func SaveConfig(config *AppConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// resolveDataDir 相对路径以可执行文件目录为基准
func resolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	return filepath.Join(exeDirOrCwd(), config.Data.DataDir)
}

// EnsureDataDir 确保数据目录及子目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := resolveDataDir(config)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	subdirs := []string{"uploads", "exports"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// DBPath 价格库文件路径
func DBPath(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DBFile) {
		return config.Data.DBFile
	}
	return filepath.Join(resolveDataDir(config), config.Data.DBFile)
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(resolveDataDir(config), subdir, filename)
}
