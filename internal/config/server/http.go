package server

// HTTPServerConfig holds the admin API listener configuration
type HTTPServerConfig struct {
	Enabled      bool   `mapstructure:"enabled"        yaml:"enabled"`
	Address      string `mapstructure:"address"        yaml:"address"        validate:"required,hostname_port"`
	ReadTimeout  string `mapstructure:"read_timeout"   yaml:"read_timeout"   validate:"duration"`
	WriteTimeout string `mapstructure:"write_timeout"  yaml:"write_timeout"  validate:"duration"`
	MaxUploadMB  int64  `mapstructure:"max_upload_mb"  yaml:"max_upload_mb"  validate:"min=1"`
	Metrics      bool   `mapstructure:"metrics"        yaml:"metrics"`
}
