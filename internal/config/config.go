package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string            `yaml:"env" env-default:"local"`
	DSN         string            `yaml:"dsn" env:"DSN" env-required:"true"`
	HTTP        HTTPConfig        `yaml:"http"`
	FileStorage FileStorageConfig `yaml:"file_storage"`
	Gallery     GalleryConfig     `yaml:"gallery"`
	Redis       RedisConf         `yaml:"redis"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port" env-default:"8080"`
}

// FileStorageConfig driver: local или s3
type FileStorageConfig struct {
	Driver  string   `yaml:"driver" env-default:"local"`
	BaseDir string   `yaml:"base_dir" env-default:"./uploads"`
	BaseURL string   `yaml:"base_url"`
	MaxSize int64    `yaml:"max_size" env-default:"20971520"`
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region" env-default:"us-east-1"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"use_ssl"`
}

type GalleryConfig struct {
	PathPrefix        string            `yaml:"path_prefix" env-default:"galleries"`
	Processor         string            `yaml:"processor" env-default:"imaging"`
	ProcessorTimeout  time.Duration     `yaml:"processor_timeout" env-default:"30s"`
	DefaultThumbnails string            `yaml:"default_thumbnails"`
	ContentTypes      map[string]string `yaml:"content_types"`
}

type RedisConf struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl" env-default:"2m"`
}

// minLockMargin запас сверх processor_timeout на чтение исходника и запись миниатюры
const minLockMargin = 30 * time.Second

// LockTTL TTL распределенной блокировки. Блокировка варианта держится все время
// создания миниатюры, поэтому не может быть короче processor_timeout с запасом.
func (c *Config) LockTTL() time.Duration {
	floor := c.Gallery.ProcessorTimeout + minLockMargin
	if c.Redis.LockTTL < floor {
		return floor
	}
	return c.Redis.LockTTL
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	// env-required проверяет только наличие переменной, пустое значение пропускает
	if cfg.DSN == "" {
		panic("config: dsn is empty")
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
