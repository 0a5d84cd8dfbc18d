package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const EnvPrefix = "GROUPREFRESH_"

type AppConfig struct {
	BaseURL          string `json:"base_url"`           // 页面所在站点, 如 http://127.0.0.1:8000
	PagePath         string `json:"page_path"`          // 首次加载的页面路径
	Endpoint         string `json:"endpoint"`           // 局部刷新的接口
	Target           string `json:"target"`             // 被替换内容的元素id
	RequestTimeoutMs int    `json:"request_timeout_ms"` // 单次请求超时 毫秒
	MaxFragmentBytes int64  `json:"max_fragment_bytes"` // 响应体上限
	TimeOffsetMs     int64  `json:"time_offset_ms"`     // 本机时钟校正 毫秒
	LogConfig        `json:",inline"`
}

type LogConfig struct {
	LogPath   string `json:"log_path"`
	LogName   string `json:"log_name"`
	LogLevel  string `json:"log_level"`
	LogStdOut bool   `json:"log_std_out"`
}

func Default() *AppConfig {
	return &AppConfig{
		BaseURL:          "http://127.0.0.1:8000",
		PagePath:         "/",
		Endpoint:         "/home/groups",
		Target:           "group-list",
		RequestTimeoutMs: 10000,
		MaxFragmentBytes: 4 << 20,
		LogConfig: LogConfig{
			LogLevel:  "info",
			LogStdOut: true,
		},
	}
}

// LoadConfig 默认值 <- json文件 <- dotenv文件 <- 环境变量, 后者覆盖前者.
// configFile和envFile都可以为空.
func LoadConfig(configFile, envFile string) (*AppConfig, error) {
	conf := Default()
	if len(configFile) > 0 {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, err
		}
		if err = json.Unmarshal(data, conf); err != nil {
			return nil, err
		}
	}
	if len(envFile) > 0 {
		// 已经存在的环境变量优先
		if err := godotenv.Load(envFile); err != nil {
			return nil, err
		}
	}
	if err := conf.loadFromEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return conf, nil
}

func (conf *AppConfig) loadFromEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BASE_URL":  &conf.BaseURL,
		"PAGE_PATH": &conf.PagePath,
		"ENDPOINT":  &conf.Endpoint,
		"TARGET":    &conf.Target,
		"LOG_PATH":  &conf.LogPath,
		"LOG_NAME":  &conf.LogName,
		"LOG_LEVEL": &conf.LogLevel,
	}
	for k, p := range strs {
		if v, ok := lookup(EnvPrefix + k); ok {
			*p = v
		}
	}
	if v, ok := lookup(EnvPrefix + "REQUEST_TIMEOUT_MS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		conf.RequestTimeoutMs = n
	}
	ints := map[string]*int64{
		"MAX_FRAGMENT_BYTES": &conf.MaxFragmentBytes,
		"TIME_OFFSET_MS":     &conf.TimeOffsetMs,
	}
	for k, p := range ints {
		if v, ok := lookup(EnvPrefix + k); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return err
			}
			*p = n
		}
	}
	if v, ok := lookup(EnvPrefix + "LOG_STD_OUT"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		conf.LogStdOut = b
	}
	return nil
}

func (conf *AppConfig) JsonFormat() string {
	if conf == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
